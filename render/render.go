// Package render executes text/template strings in one call, for config
// interpolation and small generated snippets.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// ParseError reports a template that failed to parse.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing template: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExecError reports a template that parsed but failed to execute against
// the given data.
type ExecError struct {
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("executing template: %v", e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

type settings struct {
	funcs   template.FuncMap
	left    string
	right   string
	options []string
}

// Option adjusts template parsing and execution.
type Option func(*settings)

// WithFuncs merges funcs into the template's function map.
func WithFuncs(funcs template.FuncMap) Option {
	return func(s *settings) {
		for name, fn := range funcs {
			s.funcs[name] = fn
		}
	}
}

// WithDelims replaces the default {{ }} action delimiters.
func WithDelims(left, right string) Option {
	return func(s *settings) {
		s.left, s.right = left, right
	}
}

// WithOption passes text/template option strings through, such as
// "missingkey=error".
func WithOption(opts ...string) Option {
	return func(s *settings) {
		s.options = append(s.options, opts...)
	}
}

// Render parses tmpl and executes it against data.
func Render(tmpl string, data any, opts ...Option) (string, error) {
	var sb strings.Builder
	if err := RenderTo(&sb, tmpl, data, opts...); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderTo is Render writing into w.
func RenderTo(w io.Writer, tmpl string, data any, opts ...Option) error {
	s := settings{funcs: template.FuncMap{}}
	for _, opt := range opts {
		opt(&s)
	}

	t := template.New("render").Funcs(s.funcs)
	if s.left != "" || s.right != "" {
		t = t.Delims(s.left, s.right)
	}
	if len(s.options) > 0 {
		t = t.Option(s.options...)
	}

	t, err := t.Parse(tmpl)
	if err != nil {
		return &ParseError{Err: err}
	}

	if err := t.Execute(w, data); err != nil {
		return &ExecError{Err: err}
	}
	return nil
}

// MustRender is Render for templates known at build time; it panics on
// error.
func MustRender(tmpl string, data any, opts ...Option) string {
	out, err := Render(tmpl, data, opts...)
	if err != nil {
		panic(err)
	}
	return out
}
