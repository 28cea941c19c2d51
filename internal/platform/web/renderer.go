// Package web renders the data-entry pages. Every page is parsed together
// with the shared layout once, at startup, from templates embedded in the
// binary.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Pages lists every page template the renderer knows about.
var Pages = []string{
	"index",
	"add_patient",
	"add_baseline_treatment",
	"add_outcome_assessment",
	"patient_details",
	"success",
}

// Renderer implements echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(Pages))}
	for _, page := range Pages {
		tmpl, err := template.New("layout").Funcs(funcs).
			ParseFS(templateFS, layoutFile, "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", page, err)
		}
		r.pages[page] = tmpl
	}
	return r, nil
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written page behind.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

var funcs = template.FuncMap{
	"deref": deref,
	"blank": blank,
}

// deref prints optional fields; nil renders as an empty string.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// blank reports whether an optional field has nothing worth displaying.
func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
