package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/kindred/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex() models.RepositoryIndex {
	idx := models.RepositoryIndex{}
	idx.Add(&models.ClassRecord{
		File: "pkg/motor.py", Name: "Motor",
		Methods: []string{"move", "stop"}, Attributes: []string{"speed"},
		Properties: []string{}, Parents: []string{"Device"},
		Source: "class Motor(Device): ...",
	})
	idx.Add(&models.ClassRecord{
		File: "pkg/motor.py", Name: "Device",
		Methods: []string{}, Attributes: []string{}, Properties: []string{}, Parents: []string{},
	})
	return idx
}

func TestClassMapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "classes.json")
	require.NoError(t, SaveClassMap(path, sampleIndex()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"pkg/motor.py"`)
	assert.NotContains(t, string(raw), "class Motor(Device)")

	idx, err := LoadClassMap(path)
	require.NoError(t, err)
	rec, ok := idx.Get(models.ClassRef{File: "pkg/motor.py", Name: "Motor"})
	require.True(t, ok)
	assert.Equal(t, "Motor", rec.Name)
	assert.Equal(t, "pkg/motor.py", rec.File)
	assert.Equal(t, []string{"move", "stop"}, rec.Methods)
	assert.Equal(t, []string{"Device"}, rec.Parents)
	assert.Equal(t, 2, idx.Len())
}

func TestLoadClassMapRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"missing field": `{"a.py": {"A": {"methods": [], "attributes": [], "properties": []}}}`,
		"wrong type":    `{"a.py": {"A": {"methods": "run", "attributes": [], "properties": [], "parents": []}}}`,
		"not an object": `[1, 2]`,
		"bad json":      `{"a.py":`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

			_, err := LoadClassMap(path)
			var serr *SchemaError
			require.True(t, errors.As(err, &serr), "got %v", err)
			assert.Equal(t, KindClassMap, serr.Kind)
			assert.Equal(t, path, serr.Path)
		})
	}
}

func TestClustersRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.json")
	clusters := models.ClusterList{
		{
			{ClassName: "Motor", Bases: []string{"Device"}, File: "m.py", Source: "class Motor(Device):\n    x = '<a>'"},
			{ClassName: "Stage", Bases: []string{"Device"}, File: "s.py", Source: "class Stage(Device): pass"},
		},
		{{ClassName: "Camera", Bases: []string{}, File: "c.py", Source: "class Camera: pass"}},
	}
	require.NoError(t, SaveClusters(path, clusters))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "'<a>'")

	got, err := LoadClusters(path)
	require.NoError(t, err)
	assert.Equal(t, clusters, got)
}

func TestLoadClustersRejectsEmptyCluster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[]]`), 0o644))

	_, err := LoadClusters(path)
	var serr *SchemaError
	assert.True(t, errors.As(err, &serr))
}

func TestLoadClustersDefaultsBases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.json")
	doc := `[[{"class_name": "A", "bases": [], "file": "a.py", "source": "class A: pass"}]]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	got, err := LoadClusters(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotNil(t, got[0][0].Bases)
}

func TestSimilarityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity.json")
	report := models.SimilarityReport{
		"Base": {{
			Class1:              models.ClassRef{File: "a.py", Name: "C1"},
			Class2:              models.ClassRef{File: "a.py", Name: "C2"},
			MethodSimilarity:    2.0 / 3.0,
			AttributeSimilarity: 0,
		}},
	}
	require.NoError(t, SaveSimilarity(path, report))

	got, err := LoadSimilarity(path)
	require.NoError(t, err)
	assert.Equal(t, report, got)
}

func TestLoadSimilarityRejectsOutOfRangeScore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity.json")
	doc := `{"Base": [{"class1": {"file": "a.py", "name": "A"}, "class2": {"file": "a.py", "name": "B"},
		"method_similarity": 1.5, "attribute_similarity": 0}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := LoadSimilarity(path)
	assert.Error(t, err)
}

func TestSaveEmptyDocuments(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, SaveClassMap(filepath.Join(dir, "c.json"), nil))
	idx, err := LoadClassMap(filepath.Join(dir, "c.json"))
	require.NoError(t, err)
	assert.Zero(t, idx.Len())

	require.NoError(t, SaveClusters(filepath.Join(dir, "k.json"), nil))
	clusters, err := LoadClusters(filepath.Join(dir, "k.json"))
	require.NoError(t, err)
	assert.Empty(t, clusters)

	require.NoError(t, SaveSimilarity(filepath.Join(dir, "s.json"), nil))
	report, err := LoadSimilarity(filepath.Join(dir, "s.json"))
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadClusters(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateUnknownKind(t *testing.T) {
	assert.Error(t, Validate(Kind("other"), []byte(`{}`)))
}
