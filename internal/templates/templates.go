// Package templates holds the portfolio template catalog and renders
// résumé records into standalone HTML pages.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"portfolio-backend/internal/resume"
)

//go:embed catalog.yaml
var catalogYAML []byte

//go:embed layouts/*.html.tmpl
var layoutFS embed.FS

// Template is one catalog entry.
type Template struct {
	ID          int    `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Layout      string `yaml:"layout" json:"-"`
	Description string `yaml:"description" json:"description"`
	Available   bool   `yaml:"available" json:"available"`
}

type catalog struct {
	Default   int        `yaml:"default"`
	Templates []Template `yaml:"templates"`
}

var (
	loadOnce  sync.Once
	loaded    catalog
	layouts   *template.Template
	loadError error
)

func load() error {
	loadOnce.Do(func() {
		if err := yaml.Unmarshal(catalogYAML, &loaded); err != nil {
			loadError = fmt.Errorf("parse template catalog: %w", err)
			return
		}
		if _, ok := find(loaded.Templates, loaded.Default); !ok {
			loadError = fmt.Errorf("template catalog default %d is not listed", loaded.Default)
			return
		}
		layouts, loadError = template.New("portfolio").Funcs(funcs).ParseFS(layoutFS, "layouts/*.html.tmpl")
	})
	return loadError
}

// Catalog returns every template in display order.
func Catalog() ([]Template, error) {
	if err := load(); err != nil {
		return nil, err
	}
	out := make([]Template, len(loaded.Templates))
	copy(out, loaded.Templates)
	return out, nil
}

// Resolve returns the template for id, falling back to the default when id
// is unknown or not available.
func Resolve(id int) Template {
	if err := load(); err != nil {
		return Template{ID: 1, Name: "Classic", Layout: "classic", Available: true}
	}
	if t, ok := find(loaded.Templates, id); ok && t.Available {
		return t
	}
	t, _ := find(loaded.Templates, loaded.Default)
	return t
}

// DefaultID is the catalog's default template id.
func DefaultID() int {
	if err := load(); err != nil {
		return 1
	}
	return loaded.Default
}

func find(list []Template, id int) (Template, bool) {
	for _, t := range list {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Page is the data handed to a layout.
type Page struct {
	Title    string
	Template Template
	Record   resume.Record
	Initials string
}

// Render writes rec as a complete HTML page using template id.
func Render(w io.Writer, id int, rec resume.Record) error {
	if err := load(); err != nil {
		return err
	}
	tpl := Resolve(id)
	title := strings.TrimSpace(rec.Name)
	if title == "" {
		title = "Portfolio"
	}
	page := Page{
		Title:    title,
		Template: tpl,
		Record:   rec,
		Initials: Initials(rec.Name),
	}
	return layouts.ExecuteTemplate(w, tpl.Layout+".html.tmpl", page)
}

// RenderString is Render into a string.
func RenderString(id int, rec resume.Record) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, id, rec); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Initials returns up to two uppercase initials for a display name.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"dates": func(dates, start, end string) string {
		if strings.TrimSpace(dates) != "" {
			return dates
		}
		switch {
		case start != "" && end != "":
			return start + " – " + end
		case start != "":
			return start + " – Present"
		}
		return end
	},
	"paragraphs": func(s string) []string {
		var out []string
		for _, p := range strings.Split(s, "\n") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	},
}
