package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrMissingVariable is returned when a template placeholder has no value.
var ErrMissingVariable = errors.New("llm: missing template variable")

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Template is a prompt with {name} placeholders. Braces not wrapping an
// identifier, such as JSON examples, are left alone.
type Template struct {
	Name string
	Text string
}

// NewTemplate returns a named template.
func NewTemplate(name, text string) Template {
	return Template{Name: name, Text: text}
}

// Variables lists placeholder names in order of first appearance.
func (t Template) Variables() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(t.Text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Render substitutes every placeholder. Extra variables are ignored.
func (t Template) Render(vars map[string]string) (string, error) {
	for _, name := range t.Variables() {
		if _, ok := vars[name]; !ok {
			return "", fmt.Errorf("%w: {%s} in %s", ErrMissingVariable, name, t.Name)
		}
	}
	return placeholderRe.ReplaceAllStringFunc(t.Text, func(m string) string {
		return vars[m[1:len(m)-1]]
	}), nil
}

// Run renders the template and sends it to the provider as one user message.
func (t Template) Run(ctx context.Context, p Provider, vars map[string]string) (string, error) {
	prompt, err := t.Render(vars)
	if err != nil {
		return "", err
	}
	out, err := Complete(ctx, p, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.Name, err)
	}
	return out, nil
}
