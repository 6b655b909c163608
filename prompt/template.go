// Package prompt parses and renders flow prompt templates.
//
// Templates use a small Handlebars subset: {{field}} or {{{field}}}
// substitutes a top-level input field, {{#if field}}...{{else}}...{{/if}}
// renders a block only when the field is present, and
// {{#each field}}...{{/each}} renders a block once per array element with
// {{this}} (or {{this.key}}) bound to the element. A template is parsed once
// into an immutable node tree and rendered fresh on every call.
package prompt

import (
	"fmt"
	"strings"

	"github.com/tluyben/huntflow/schema"
)

// Node is one element of a parsed template.
type Node interface {
	node()
}

// Literal is plain template text.
type Literal struct {
	Text string
}

// FieldRef substitutes a top-level input field, or the current iteration
// element when This is set. Key selects a member of an object element.
type FieldRef struct {
	Name string
	This bool
	Key  string
}

// Conditional renders Body when Field is present in the input, Else
// otherwise.
type Conditional struct {
	Field string
	Body  []Node
	Else  []Node
}

// Iteration renders Body once per element of the array field.
type Iteration struct {
	Field string
	Body  []Node
}

func (Literal) node()     {}
func (FieldRef) node()    {}
func (Conditional) node() {}
func (Iteration) node()   {}

// SyntaxError reports malformed template markup.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template: offset %d: %s", e.Offset, e.Msg)
}

// Template is a parsed prompt template. When bound to an input schema, every
// field marker is known to name a declared field.
type Template struct {
	src    string
	nodes  []Node
	fields map[string]bool
}

// Parse parses src into a template that is not bound to any schema. An
// unbound template treats the keys of each rendered input as its fields.
func Parse(src string) (*Template, error) {
	nodes, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Template{src: src, nodes: nodes}, nil
}

// Compile parses src and binds it to the input schema in.
func Compile(src string, in schema.Schema) (*Template, error) {
	t, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return t.Bind(in)
}

// Bind returns a copy of t restricted to the top-level fields of in. Every
// marker must name a declared field and every iteration must be keyed to an
// array field.
func (t *Template) Bind(in schema.Schema) (*Template, error) {
	fields := make(map[string]bool)
	for _, f := range in.Fields() {
		fields[f.Name] = true
	}

	var check func(nodes []Node) error
	check = func(nodes []Node) error {
		for _, n := range nodes {
			switch n := n.(type) {
			case FieldRef:
				if !n.This && !fields[n.Name] {
					return schema.NewUnknownField(n.Name)
				}
			case Conditional:
				if !fields[n.Field] {
					return schema.NewUnknownField(n.Field)
				}
				if err := check(n.Body); err != nil {
					return err
				}
				if err := check(n.Else); err != nil {
					return err
				}
			case Iteration:
				f, ok := in.Field(n.Field)
				if !ok {
					return schema.NewUnknownField(n.Field)
				}
				if f.Schema.Kind() != schema.Array {
					return &schema.ValidationError{
						Kind:     schema.TypeMismatch,
						Path:     n.Field,
						Expected: schema.Array,
						Actual:   f.Schema.Kind().String(),
					}
				}
				if err := check(n.Body); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := check(t.nodes); err != nil {
		return nil, err
	}

	return &Template{src: t.src, nodes: t.nodes, fields: fields}, nil
}

// Source returns the template text the template was parsed from.
func (t *Template) Source() string { return t.src }

// Nodes returns the top-level nodes of the parsed template.
func (t *Template) Nodes() []Node { return append([]Node(nil), t.nodes...) }

// Fields returns the top-level input fields the template references, in
// order of first appearance.
func (t *Template) Fields() []string {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch n := n.(type) {
			case FieldRef:
				if !n.This {
					add(n.Name)
				}
			case Conditional:
				add(n.Field)
				walk(n.Body)
				walk(n.Else)
			case Iteration:
				add(n.Field)
				walk(n.Body)
			}
		}
	}
	walk(t.nodes)
	return out
}

type block struct {
	kind   string
	field  string
	offset int
	body   []Node
	alt    []Node
	inElse bool
}

func (b *block) add(n Node) {
	if b.inElse {
		b.alt = append(b.alt, n)
		return
	}
	b.body = append(b.body, n)
}

func parse(src string) ([]Node, error) {
	stack := []*block{{kind: "root"}}
	top := func() *block { return stack[len(stack)-1] }
	eachDepth := 0

	rest := src
	offset := 0
	for len(rest) > 0 {
		i := strings.Index(rest, "{{")
		if i < 0 {
			top().add(Literal{Text: rest})
			break
		}
		if i > 0 {
			top().add(Literal{Text: rest[:i]})
		}

		open, closing := "{{", "}}"
		if strings.HasPrefix(rest[i:], "{{{") {
			open, closing = "{{{", "}}}"
		}
		pos := offset + i
		inner := rest[i+len(open):]
		j := strings.Index(inner, closing)
		if j < 0 {
			return nil, &SyntaxError{Offset: pos, Msg: "unclosed marker"}
		}
		marker := strings.TrimSpace(inner[:j])
		consumed := i + len(open) + j + len(closing)
		rest = rest[consumed:]
		offset += consumed

		switch {
		case marker == "":
			return nil, &SyntaxError{Offset: pos, Msg: "empty marker"}

		case strings.HasPrefix(marker, "#"):
			parts := strings.Fields(marker[1:])
			if len(parts) != 2 || (parts[0] != "if" && parts[0] != "each") {
				return nil, &SyntaxError{Offset: pos, Msg: fmt.Sprintf("invalid block %q", marker)}
			}
			if !isIdent(parts[1]) {
				return nil, &SyntaxError{Offset: pos, Msg: fmt.Sprintf("invalid field name %q", parts[1])}
			}
			if parts[0] == "each" {
				eachDepth++
			}
			stack = append(stack, &block{kind: parts[0], field: parts[1], offset: pos})

		case strings.HasPrefix(marker, "/"):
			name := strings.TrimSpace(marker[1:])
			b := top()
			if b.kind == "root" {
				return nil, &SyntaxError{Offset: pos, Msg: fmt.Sprintf("unexpected {{/%s}}", name)}
			}
			if name != b.kind {
				return nil, &SyntaxError{Offset: pos, Msg: fmt.Sprintf("{{/%s}} closes {{#%s}}", name, b.kind)}
			}
			stack = stack[:len(stack)-1]
			if b.kind == "each" {
				eachDepth--
				top().add(Iteration{Field: b.field, Body: b.body})
			} else {
				top().add(Conditional{Field: b.field, Body: b.body, Else: b.alt})
			}

		case marker == "else":
			b := top()
			if b.kind != "if" || b.inElse {
				return nil, &SyntaxError{Offset: pos, Msg: "unexpected {{else}}"}
			}
			b.inElse = true

		case marker == "this" || strings.HasPrefix(marker, "this."):
			if eachDepth == 0 {
				return nil, &SyntaxError{Offset: pos, Msg: "{{this}} outside {{#each}}"}
			}
			key := strings.TrimPrefix(strings.TrimPrefix(marker, "this"), ".")
			if marker != "this" && !isIdent(key) {
				return nil, &SyntaxError{Offset: pos, Msg: fmt.Sprintf("invalid key %q", key)}
			}
			top().add(FieldRef{This: true, Key: key})

		case isIdent(marker):
			top().add(FieldRef{Name: marker})

		default:
			return nil, &SyntaxError{Offset: pos, Msg: fmt.Sprintf("invalid marker %q", marker)}
		}
	}

	if len(stack) > 1 {
		b := top()
		return nil, &SyntaxError{Offset: b.offset, Msg: fmt.Sprintf("unclosed {{#%s %s}}", b.kind, b.field)}
	}
	return stack[0].body, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
