package summarize

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// PromptMeta is the YAML frontmatter of a prompt file.
type PromptMeta struct {
	Description string `yaml:"description"`
	SampleSize  int    `yaml:"sample_size"`
}

// Prompt is a parsed prompt template.
type Prompt struct {
	Meta PromptMeta
	tmpl *template.Template
}

// LoadPrompt reads an embedded prompt by name.
func LoadPrompt(name string) (*Prompt, error) {
	content, err := promptFiles.ReadFile("prompts/" + name + ".md")
	if err != nil {
		return nil, fmt.Errorf("prompt %q: %w", name, err)
	}
	return ParsePrompt(name, content)
}

// ParsePrompt parses markdown with optional YAML frontmatter into a
// template.
func ParsePrompt(name string, content []byte) (*Prompt, error) {
	meta, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("prompt %q frontmatter: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("prompt %q: %w", name, err)
	}
	return &Prompt{Meta: meta, tmpl: tmpl}, nil
}

// Render executes the template with the given class sources.
func (p *Prompt) Render(sources []string) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, struct{ Sources []string }{sources}); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func splitFrontmatter(content []byte) (PromptMeta, string, error) {
	var meta PromptMeta
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return meta, string(content), nil
	}

	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return meta, string(content), nil
	}

	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return meta, "", err
	}
	return meta, string(rest[end+5:]), nil
}
