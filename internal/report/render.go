package report

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/kindred/internal/store"
	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"github.com/panbanda/kindred/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed template.html
var templateFS embed.FS

// Data directory file names read by the renderer besides the store
// documents.
const (
	MetadataFile  = "metadata.json"
	SummariesFile = "summaries.json"
)

// RenderData contains all data needed to render the HTML report.
type RenderData struct {
	Metadata   Metadata
	Stats      Stats
	Classes    models.RepositoryIndex
	Hierarchy  *hierarchy.Hierarchy
	Clusters   models.ClusterList
	Similarity models.SimilarityReport
	Summaries  map[int]ClusterSummary
	Diagram    string
}

// Renderer handles HTML report generation.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer creates a new renderer with the embedded template.
func NewRenderer() (*Renderer, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		"title": cases.Title(language.English).String,
		"num": func(n int) string {
			return printer.Sprintf("%d", n)
		},
		"fixed": func(f float64) string {
			return printer.Sprintf("%.2f", f)
		},
		"percent": func(a, b int) float64 {
			if b == 0 {
				return 0
			}
			return float64(a) / float64(b) * 100
		},
		"inc": func(i int) int { return i + 1 },
		"join": strings.Join,
		"truncatePath": truncatePath,
		"summary": func(summaries map[int]ClusterSummary, i int) *ClusterSummary {
			if s, ok := summaries[i+1]; ok {
				return &s
			}
			return nil
		},
	}

	tmplContent, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(string(tmplContent))
	if err != nil {
		return nil, err
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render generates HTML from the data directory and writes to w.
func (r *Renderer) Render(dataDir string, w io.Writer) error {
	data, err := LoadData(dataDir)
	if err != nil {
		return err
	}
	return r.RenderData(data, w)
}

// RenderData executes the template for already loaded data.
func (r *Renderer) RenderData(data *RenderData, w io.Writer) error {
	return r.tmpl.Execute(w, data)
}

// RenderToFile generates HTML and writes it to a file.
func (r *Renderer) RenderToFile(dataDir, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return r.Render(dataDir, f)
}

// LoadData reads a data directory. The class map is required; clusters,
// similarity, summaries and metadata are optional.
func LoadData(dataDir string) (*RenderData, error) {
	idx, err := store.LoadClassMap(filepath.Join(dataDir, store.ClassMapFile))
	if err != nil {
		return nil, err
	}

	h := hierarchy.Build(idx)
	data := &RenderData{
		Classes:   idx,
		Hierarchy: h,
		Stats:     ComputeStats(h, 0),
		Summaries: map[int]ClusterSummary{},
	}

	if err := optional(func() error {
		data.Clusters, err = store.LoadClusters(filepath.Join(dataDir, store.ClustersFile))
		return err
	}); err != nil {
		return nil, err
	}
	if len(data.Clusters) > 0 {
		data.Diagram = AllClustersDiagram(data.Clusters)
	}

	if err := optional(func() error {
		data.Similarity, err = store.LoadSimilarity(filepath.Join(dataDir, store.SimilarityFile))
		return err
	}); err != nil {
		return nil, err
	}

	if err := optional(func() error {
		return loadJSON(filepath.Join(dataDir, MetadataFile), &data.Metadata)
	}); err != nil {
		return nil, err
	}

	var summaries []ClusterSummary
	if err := optional(func() error {
		return loadJSON(filepath.Join(dataDir, SummariesFile), &summaries)
	}); err != nil {
		return nil, err
	}
	for _, s := range summaries {
		data.Summaries[s.Index] = s
	}

	return data, nil
}

// optional runs load and ignores a missing file.
func optional(load func() error) error {
	if err := load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func loadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

func truncatePath(s string, n int) string {
	if len(s) <= n {
		return s
	}
	parts := strings.Split(s, "/")
	filename := parts[len(parts)-1]
	if len(parts) <= 2 || len(filename) >= n-3 {
		return "..." + s[len(s)-n+3:]
	}
	prefix := strings.Join(parts[:len(parts)-1], "/")
	remaining := max(n-len(filename)-4, 0)
	if len(prefix) > remaining {
		prefix = prefix[len(prefix)-remaining:]
	}
	return "..." + prefix + "/" + filename
}
