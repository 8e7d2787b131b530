// Package store persists the documents passed between stages: the class
// map, the cluster list and the similarity report. Documents are validated
// against embedded JSON Schemas when loaded.
package store

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/panbanda/kindred/pkg/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// Kind names a persisted document type.
type Kind string

const (
	KindClassMap   Kind = "classmap"
	KindClusters   Kind = "clusters"
	KindSimilarity Kind = "similarity"
)

// Default file names of the documents inside a data directory.
const (
	ClassMapFile   = "classes.json"
	ClustersFile   = "clusters.json"
	SimilarityFile = "similarity.json"
)

const schemaBase = "https://github.com/panbanda/kindred/schemas/"

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[Kind]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		kinds := []Kind{KindClassMap, KindClusters, KindSimilarity}
		for _, k := range kinds {
			raw, err := schemaFiles.ReadFile("schemas/" + string(k) + ".json")
			if err != nil {
				compileErr = err
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
			if err != nil {
				compileErr = fmt.Errorf("schema %s: %w", k, err)
				return
			}
			if err := c.AddResource(schemaBase+string(k)+".json", doc); err != nil {
				compileErr = fmt.Errorf("schema %s: %w", k, err)
				return
			}
		}

		compiled = make(map[Kind]*jsonschema.Schema, len(kinds))
		for _, k := range kinds {
			sch, err := c.Compile(schemaBase + string(k) + ".json")
			if err != nil {
				compileErr = fmt.Errorf("schema %s: %w", k, err)
				return
			}
			compiled[k] = sch
		}
	})
	return compiled, compileErr
}

// SchemaError reports a document that does not match its schema.
type SchemaError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: invalid %s document: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("invalid %s document: %v", e.Kind, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Validate checks raw JSON against the schema for kind.
func Validate(kind Kind, data []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	sch, ok := all[kind]
	if !ok {
		return fmt.Errorf("unknown document kind %q", kind)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &SchemaError{Kind: kind, Err: err}
	}
	if err := sch.Validate(inst); err != nil {
		return &SchemaError{Kind: kind, Err: err}
	}
	return nil
}

// Encode writes v as indented JSON.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Decode validates data against kind's schema and unmarshals it into v.
func Decode(kind Kind, data []byte, v any) error {
	if err := Validate(kind, data); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// save writes v to path through a temporary file in the same directory.
func save(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".kindred-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteJSON writes v to path like the Save functions but without a schema,
// for auxiliary files such as run metadata.
func WriteJSON(path string, v any) error {
	return save(path, v)
}

func load(kind Kind, path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := Decode(kind, data, v); err != nil {
		var serr *SchemaError
		if errors.As(err, &serr) {
			serr.Path = path
		}
		return err
	}
	return nil
}

// SaveClassMap writes the class map to path.
func SaveClassMap(path string, idx models.RepositoryIndex) error {
	if idx == nil {
		idx = models.RepositoryIndex{}
	}
	return save(path, idx)
}

// LoadClassMap reads a class map and restores file and name on each record.
func LoadClassMap(path string) (models.RepositoryIndex, error) {
	idx := models.RepositoryIndex{}
	if err := load(KindClassMap, path, &idx); err != nil {
		return nil, err
	}
	idx.Normalize()
	return idx, nil
}

// SaveClusters writes the cluster list to path.
func SaveClusters(path string, clusters models.ClusterList) error {
	if clusters == nil {
		clusters = models.ClusterList{}
	}
	return save(path, clusters)
}

// LoadClusters reads a cluster list.
func LoadClusters(path string) (models.ClusterList, error) {
	var clusters models.ClusterList
	if err := load(KindClusters, path, &clusters); err != nil {
		return nil, err
	}
	for _, c := range clusters {
		for i := range c {
			if c[i].Bases == nil {
				c[i].Bases = []string{}
			}
		}
	}
	return clusters, nil
}

// SaveSimilarity writes the similarity report to path.
func SaveSimilarity(path string, report models.SimilarityReport) error {
	if report == nil {
		report = models.SimilarityReport{}
	}
	return save(path, report)
}

// LoadSimilarity reads a similarity report.
func LoadSimilarity(path string) (models.SimilarityReport, error) {
	report := models.SimilarityReport{}
	if err := load(KindSimilarity, path, &report); err != nil {
		return nil, err
	}
	return report, nil
}
