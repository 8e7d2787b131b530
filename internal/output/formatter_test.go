package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/kindred/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":     FormatJSON,
		"JSON":     FormatJSON,
		"markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		"toon":     FormatTOON,
		"text":     FormatText,
		"":         FormatText,
		"yaml":     FormatText,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseFormat(in), in)
	}
}

func classTable() *Table {
	return NewTable("Classes",
		[]string{"Class", "File", "Methods"},
		[][]string{{"Motor", "motor.py", "3"}, {"Stage", "stage.py", "1"}},
		[]string{"Total", "", "4"},
		nil,
	)
}

func render(t *testing.T, format Format, data any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(format, &buf, false).Output(data))
	return buf.String()
}

func TestTableText(t *testing.T) {
	out := render(t, FormatText, classTable())
	assert.True(t, strings.HasPrefix(out, "Classes\n=======\n\n"))
	assert.Contains(t, out, "Motor")
	assert.Contains(t, out, "stage.py")
	assert.Contains(t, out, "Total")
}

func TestTableMarkdown(t *testing.T) {
	tbl := classTable()
	tbl.Rows = append(tbl.Rows, []string{"Pipe|Thing", "p.py", "0"})
	out := render(t, FormatMarkdown, tbl)

	assert.Contains(t, out, "## Classes\n\n")
	assert.Contains(t, out, "| Class | File | Methods |\n| --- | --- | --- |\n")
	assert.Contains(t, out, "| Motor | motor.py | 3 |")
	assert.Contains(t, out, `| Pipe\|Thing | p.py | 0 |`)
	assert.Contains(t, out, "| Total |  | 4 |")
}

func TestTableJSON(t *testing.T) {
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(render(t, FormatJSON, classTable())), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Motor", rows[0]["Class"])

	withData := NewTable("", []string{"A"}, nil, nil, map[string]int{"classes": 2})
	assert.JSONEq(t, `{"classes": 2}`, render(t, FormatJSON, withData))
}

func TestTableTOON(t *testing.T) {
	out := render(t, FormatTOON, NewTable("", nil, nil, nil, map[string]int{"classes": 2}))
	assert.Contains(t, out, "classes: 2")
}

func TestRawData(t *testing.T) {
	data := map[string]string{"source": "class A(B): x = '<tag>'"}

	out := render(t, FormatText, data)
	assert.Contains(t, out, "'<tag>'")

	md := render(t, FormatMarkdown, data)
	assert.True(t, strings.HasPrefix(md, "```json\n"))
	assert.True(t, strings.HasSuffix(md, "```\n"))

	assert.Contains(t, render(t, FormatTOON, data), "source:")
}

func TestSectionAndReport(t *testing.T) {
	report := &Report{
		Title: "Hierarchy",
		Sections: []Renderable{
			&Section{
				Title:    "Roots",
				Content:  "Device",
				Sections: []Section{{Title: "Leaves", Content: "Motor"}},
			},
			classTable(),
		},
	}

	text := render(t, FormatText, report)
	assert.True(t, strings.HasPrefix(text, "Hierarchy\n=========\n\n"))
	assert.Contains(t, text, "Roots\n=====\nDevice\n")
	assert.Contains(t, text, "Leaves\n------\nMotor\n")

	md := render(t, FormatMarkdown, report)
	assert.Contains(t, md, "# Hierarchy\n\n")
	assert.Contains(t, md, "## Roots\n\nDevice\n\n### Leaves\n\nMotor\n\n")

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(render(t, FormatJSON, report)), &data))
	assert.Equal(t, "Hierarchy", data["title"])
	assert.Len(t, data["sections"], 2)
}

func TestNewFormatterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	f, err := NewFormatter(FormatJSON, path, true)
	require.NoError(t, err)
	assert.False(t, f.Colored(), "files are never colored")
	assert.Equal(t, FormatJSON, f.Format())

	require.NoError(t, f.Output(map[string]int{"n": 1}))
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": 1}`, string(raw))

	_, err = NewFormatter(FormatText, filepath.Join(t.TempDir(), "missing", "x.txt"), false)
	assert.Error(t, err)
}

func TestStdoutFormatter(t *testing.T) {
	f, err := NewFormatter(FormatText, "", true)
	require.NoError(t, err)
	assert.True(t, f.Colored())
	assert.Equal(t, os.Stdout, f.Writer())
	assert.NoError(t, f.Close())
}

func TestDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	Diagnostics(&buf, []models.Diagnostic{
		{Kind: models.DiagParseFailure, File: "bad.py", Message: "bad.py:1:14: syntax error"},
		{Kind: models.DiagEmbeddingFailure, File: "a.py", Class: "A", Message: "timeout"},
	}, false)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "warning: parse_failure: bad.py: bad.py:1:14: syntax error", lines[0])
	assert.Equal(t, "warning: embedding_failure: a.py:A: timeout", lines[1])
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatText, &buf, false)
	f.Success("wrote %d classes", 3)
	f.Warning("skipped %s", "bad.py")
	assert.Equal(t, "wrote 3 classes\nWARNING: skipped bad.py\n", buf.String())
}
