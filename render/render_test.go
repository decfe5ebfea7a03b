package render

import (
	"errors"
	"strings"
	"testing"
	"text/template"
)

func TestRender(t *testing.T) {
	got, err := Render("Hello {{.Name}}, attempt {{.N}}", map[string]any{
		"Name": "dev",
		"N":    3,
	})
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if got != "Hello dev, attempt 3" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderWithFuncs(t *testing.T) {
	got, err := Render("{{shout .Name}}", map[string]any{"Name": "dev"},
		WithFuncs(template.FuncMap{"shout": strings.ToUpper}))
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if got != "DEV" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderWithDelims(t *testing.T) {
	got, err := Render("port=[[.Port]] raw={{.Port}}", map[string]any{"Port": 80},
		WithDelims("[[", "]]"))
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if got != "port=80 raw={{.Port}}" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderMissingKeyOption(t *testing.T) {
	_, err := Render("{{.absent}}", map[string]any{}, WithOption("missingkey=error"))

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Errorf("Render() error = %v (%T), want *ExecError", err, err)
	}
}

func TestRenderParseError(t *testing.T) {
	_, err := Render("{{.Name", nil)

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("Render() error = %v (%T), want *ParseError", err, err)
	}
}

func TestRenderTo(t *testing.T) {
	var sb strings.Builder
	if err := RenderTo(&sb, "n={{.}}", 7); err != nil {
		t.Fatalf("RenderTo() returned error: %v", err)
	}
	if sb.String() != "n=7" {
		t.Errorf("RenderTo() wrote %q", sb.String())
	}
}

func TestMustRender(t *testing.T) {
	if got := MustRender("{{.}}", "ok"); got != "ok" {
		t.Errorf("MustRender() = %q", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRender() of a broken template did not panic")
		}
	}()
	MustRender("{{.Name", nil)
}
