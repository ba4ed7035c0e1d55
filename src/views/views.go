// Package views renders gateway results for the terminal. Each view reads
// state and writes it in one of three formats; none of them talk to the
// network.
package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/toolgate/gateway-client/src/json"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps user input to a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected text, json or yaml)", s)
	}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTheme overrides the color palette.
func WithTheme(t Theme) Option {
	return func(r *Renderer) { r.theme = t }
}

// Renderer writes views to one writer.
type Renderer struct {
	w      io.Writer
	format Format
	theme  Theme
	st     styles
}

// New returns a renderer for w. Colors are only emitted when w is a
// terminal that supports them.
func New(w io.Writer, format Format, opts ...Option) *Renderer {
	if format == "" {
		format = FormatText
	}
	r := &Renderer{w: w, format: format, theme: DefaultTheme}
	for _, opt := range opts {
		opt(r)
	}
	r.st = newStyles(lipgloss.NewRenderer(w), r.theme)
	return r
}

// Format returns the output encoding.
func (r *Renderer) Format() Format { return r.format }

// Writer returns the destination.
func (r *Renderer) Writer() io.Writer { return r.w }

// encode writes v as JSON or YAML. It reports false for text output so
// the caller can draw the styled form instead.
func (r *Renderer) encode(v any) (bool, error) {
	switch r.format {
	case FormatJSON:
		_, err := fmt.Fprintln(r.w, json.Pretty(v))
		return true, err
	case FormatYAML:
		out, err := yaml.Marshal(generic(v))
		if err != nil {
			return true, err
		}
		_, err = r.w.Write(out)
		return true, err
	}
	return false, nil
}

// generic round-trips v through JSON so YAML output uses the same field
// names as JSON output.
func generic(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func (r *Renderer) println(parts ...string) error {
	_, err := fmt.Fprintln(r.w, strings.Join(parts, " "))
	return err
}

func (r *Renderer) block(text string) error {
	return r.println(r.st.indent.Render(text))
}
