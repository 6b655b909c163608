package types

// Property is the file form of a schema field. Arrays describe their element
// with Items; objects list their fields in Properties.
type Property struct {
	Name        string     `yaml:"name,omitempty" json:"name,omitempty"`
	Type        string     `yaml:"type" json:"type"`
	Optional    bool       `yaml:"optional,omitempty" json:"optional,omitempty"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Items       *Property  `yaml:"items,omitempty" json:"items,omitempty"`
	Properties  []Property `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// FlowStep chains a flow to the next one. Validate is a JavaScript boolean
// expression over input and output; Next is a flow name or "$END"; Input
// optionally builds the next flow's input object.
type FlowStep struct {
	Validate string `yaml:"validate" json:"validate"`
	Next     string `yaml:"next" json:"next"`
	Input    string `yaml:"input,omitempty" json:"input,omitempty"`
}

// Flow is a flow definition as written in a .yml or .json flow file.
type Flow struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Input       []Property `yaml:"input" json:"input"`
	Output      []Property `yaml:"output" json:"output"`
	Prompt      string     `yaml:"prompt" json:"prompt"`
	FlowSteps   []FlowStep `yaml:"flow,omitempty" json:"flow,omitempty"`
}
