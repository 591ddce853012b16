package llm

import (
	"bytes"
	"embed"
	"fmt"
	"sync"
	"text/template"
)

const (
	PromptExtract  = "extract_v1"
	PromptSummary  = "summary_v1"
	PromptLogoPick = "logo_pick_v1"
)

//go:embed prompts/*.txt
var promptFS embed.FS

var (
	templatesOnce sync.Once
	templates     *template.Template
	templatesErr  error
)

// PromptTemplate returns the raw prompt text and whether the name was recognized.
func PromptTemplate(name string) (string, bool) {
	bs, err := promptFS.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return string(bs), true
}

// Render executes the named prompt with data.
func Render(name string, data any) (string, error) {
	templatesOnce.Do(func() {
		templates, templatesErr = template.New("prompts").
			Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
			ParseFS(promptFS, "prompts/*.txt")
	})
	if templatesErr != nil {
		return "", fmt.Errorf("parse prompts: %w", templatesErr)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".txt", data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}
