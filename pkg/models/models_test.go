package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryIndexOrdering(t *testing.T) {
	idx := RepositoryIndex{}
	idx.Add(&ClassRecord{File: "b.py", Name: "Z"})
	idx.Add(&ClassRecord{File: "a.py", Name: "Y"})
	idx.Add(&ClassRecord{File: "a.py", Name: "X"})

	assert.Equal(t, []string{"a.py", "b.py"}, idx.Files())
	assert.Equal(t, 3, idx.Len())

	var refs []string
	for _, rec := range idx.Records() {
		refs = append(refs, rec.Ref().String())
	}
	assert.Equal(t, []string{"a.py:X", "a.py:Y", "b.py:Z"}, refs)

	rec, ok := idx.Get(ClassRef{File: "a.py", Name: "Y"})
	require.True(t, ok)
	assert.Equal(t, "Y", rec.Name)
	_, ok = idx.Get(ClassRef{File: "b.py", Name: "Y"})
	assert.False(t, ok)
}

func TestClassMapDocumentShape(t *testing.T) {
	idx := RepositoryIndex{}
	idx.Add(&ClassRecord{
		File:       "pkg/mod.py",
		Name:       "Child",
		Methods:    []string{"__init__", "go"},
		Attributes: []string{"x"},
		Properties: []string{},
		Parents:    []string{"Base"},
		Source:     "class Child(Base): ...",
	})

	data, err := json.Marshal(idx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pkg/mod.py":{"Child":{"methods":["__init__","go"],"attributes":["x"],"properties":[],"parents":["Base"]}}}`, string(data))

	var decoded RepositoryIndex
	require.NoError(t, json.Unmarshal(data, &decoded))
	decoded.Normalize()
	rec, ok := decoded.Get(ClassRef{File: "pkg/mod.py", Name: "Child"})
	require.True(t, ok)
	assert.Equal(t, "Child", rec.Name)
	assert.Equal(t, "pkg/mod.py", rec.File)
	assert.Equal(t, []string{"Base"}, rec.Parents)
}

func TestClassRecordHasParent(t *testing.T) {
	rec := &ClassRecord{Parents: []string{"Device", "Mixin"}}
	assert.True(t, rec.HasParent("Signal", "Device"))
	assert.False(t, rec.HasParent("Signal"))
	assert.False(t, rec.HasParent())
}

func TestDiagnosticString(t *testing.T) {
	assert.Equal(t, "parse_failure: a.py: syntax error",
		Diagnostic{Kind: DiagParseFailure, File: "a.py", Message: "syntax error"}.String())
	assert.Equal(t, "embedding_failure: a.py:Foo: timeout",
		Diagnostic{Kind: DiagEmbeddingFailure, File: "a.py", Class: "Foo", Message: "timeout"}.String())
}

func TestClusterListMembers(t *testing.T) {
	list := ClusterList{
		{{ClassName: "A", File: "a.py"}, {ClassName: "B", File: "a.py"}},
		{{ClassName: "C", File: "c.py"}},
	}
	assert.Equal(t, 3, list.Members())
	assert.Equal(t, "A", list[0].Seed().ClassName)
	assert.Equal(t, ClassRef{File: "c.py", Name: "C"}, list[1][0].Ref())
}
