package prompt_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluyben/huntflow/prompt"
	"github.com/tluyben/huntflow/schema"
)

var huntInput = schema.MustObject(
	schema.Required("objective", schema.TextSchema(), ""),
	schema.Optional("domain", schema.TextSchema(), ""),
	schema.Optional("attackType", schema.TextSchema(), ""),
	schema.Optional("hopLimit", schema.NumberSchema(), ""),
)

var suggestInput = schema.MustObject(
	schema.Required("environmentDescription", schema.TextSchema(), ""),
	schema.Required("observables", schema.ArrayOf(schema.TextSchema()), ""),
)

const huntTemplate = "Objective: {{{objective}}}\n" +
	"{{#if domain}}Domain: {{{domain}}}{{/if}}\n" +
	"{{#if hopLimit}}Hop Limit: {{hopLimit}}{{/if}}"

func TestConditionalBlock(t *testing.T) {
	tmpl, err := prompt.Compile(huntTemplate, huntInput)
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]any{"objective": "find paths to domain admin"})
	require.NoError(t, err)
	assert.Equal(t, "Objective: find paths to domain admin\n\n", out)
	assert.NotContains(t, out, "Domain:")

	out, err = tmpl.Render(map[string]any{
		"objective": "find paths to domain admin",
		"domain":    "corp.local",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Domain: corp.local"))
}

func TestConditionalPresenceNotTruthiness(t *testing.T) {
	tmpl, err := prompt.Compile(huntTemplate, huntInput)
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]any{"objective": "x", "hopLimit": 0.0})
	require.NoError(t, err)
	assert.Contains(t, out, "Hop Limit: 0")

	out, err = tmpl.Render(map[string]any{"objective": "x", "hopLimit": nil})
	require.NoError(t, err)
	assert.NotContains(t, out, "Hop Limit")
}

func TestConditionalElse(t *testing.T) {
	tmpl, err := prompt.Compile("{{#if domain}}in {{domain}}{{else}}all domains{{/if}}", huntInput)
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]any{"objective": "x"})
	require.NoError(t, err)
	assert.Equal(t, "all domains", out)

	out, err = tmpl.Render(map[string]any{"objective": "x", "domain": "corp.local"})
	require.NoError(t, err)
	assert.Equal(t, "in corp.local", out)
}

func TestIterationBlock(t *testing.T) {
	tmpl, err := prompt.Compile("Observables: {{#each observables}}{{{this}}}, {{/each}}", suggestInput)
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]any{
		"environmentDescription": "AD forest",
		"observables":            []any{"A", "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Observables: A, B, ", out)

	out, err = tmpl.Render(map[string]any{
		"environmentDescription": "AD forest",
		"observables":            []any{},
	})
	require.NoError(t, err)
	assert.Equal(t, "Observables: ", out)
}

func TestIterationObjectElements(t *testing.T) {
	in := schema.MustObject(
		schema.Required("hosts", schema.ArrayOf(schema.MustObject(
			schema.Required("name", schema.TextSchema(), ""),
		)), ""),
	)
	tmpl, err := prompt.Compile("{{#each hosts}}[{{this.name}}]{{/each}}", in)
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]any{
		"hosts": []any{
			map[string]any{"name": "DC-01"},
			map[string]any{"name": "WEB-SRV-01"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "[DC-01][WEB-SRV-01]", out)
}

func TestRenderIsDeterministic(t *testing.T) {
	tmpl, err := prompt.Compile(huntTemplate, huntInput)
	require.NoError(t, err)

	in := map[string]any{"objective": "x", "domain": "corp.local", "hopLimit": 3.0}
	a, err := tmpl.Render(in)
	require.NoError(t, err)
	b, err := tmpl.Render(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "Hop Limit: 3")
}

func TestStringification(t *testing.T) {
	tmpl, err := prompt.Parse("{{a}}|{{b}}|{{c}}|{{d}}|{{e}}|{{f}}")
	require.NoError(t, err)

	out, err := tmpl.Render(map[string]any{
		"a": 2.5,
		"b": 7,
		"c": false,
		"d": []any{"x", "y"},
		"e": map[string]any{"k": "v"},
		"f": []any{map[string]any{"k": 1.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, `2.5|7|false|x,y|{"k":"v"}|[{"k":1}]`, out)
}

func TestCompileUnknownField(t *testing.T) {
	_, err := prompt.Compile("{{objective}} {{target}}", huntInput)
	require.Error(t, err)

	var ve *schema.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, schema.UnknownField, ve.Kind)
	assert.Equal(t, "target", ve.Path)

	_, err = prompt.Compile("{{#if target}}x{{/if}}", huntInput)
	assert.ErrorIs(t, err, schema.ErrUnknownField)
}

func TestCompileIterationNeedsArray(t *testing.T) {
	_, err := prompt.Compile("{{#each objective}}{{this}}{{/each}}", huntInput)
	assert.ErrorIs(t, err, schema.ErrTypeMismatch)
}

func TestRenderUnboundUnknownField(t *testing.T) {
	tmpl, err := prompt.Parse("Objective: {{objective}}")
	require.NoError(t, err)

	_, err = tmpl.Render(map[string]any{"goal": "x"})
	assert.ErrorIs(t, err, schema.ErrUnknownField)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unclosed marker", "Objective: {{objective"},
		{"empty marker", "{{ }}"},
		{"unclosed block", "{{#if domain}}Domain"},
		{"mismatched close", "{{#if domain}}x{{/each}}"},
		{"stray close", "x{{/if}}"},
		{"unknown helper", "{{#with domain}}x{{/with}}"},
		{"this outside each", "{{this}}"},
		{"stray else", "{{else}}"},
		{"bad name", "{{1abc}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prompt.Parse(tt.src)
			var se *prompt.SyntaxError
			assert.True(t, errors.As(err, &se), "got %v", err)
		})
	}
}

func TestFields(t *testing.T) {
	tmpl, err := prompt.Parse(huntTemplate + "{{objective}}")
	require.NoError(t, err)
	assert.Equal(t, []string{"objective", "domain", "hopLimit"}, tmpl.Fields())
}

func TestNodes(t *testing.T) {
	tmpl, err := prompt.Parse("a{{#each xs}}{{this}}{{/each}}")
	require.NoError(t, err)

	nodes := tmpl.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, prompt.Literal{Text: "a"}, nodes[0])
	it, ok := nodes[1].(prompt.Iteration)
	require.True(t, ok)
	assert.Equal(t, "xs", it.Field)
	assert.Equal(t, []prompt.Node{prompt.FieldRef{This: true}}, it.Body)
}
