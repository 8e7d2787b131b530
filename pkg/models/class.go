package models

import (
	"slices"
	"sort"
)

// ClassRef identifies a class by file and name. Same-named classes in
// different files are distinct.
type ClassRef struct {
	File string `json:"file"`
	Name string `json:"name"`
}

// String returns "file:Name".
func (r ClassRef) String() string {
	return r.File + ":" + r.Name
}

// Less orders refs by file, then name.
func (r ClassRef) Less(o ClassRef) bool {
	if r.File != o.File {
		return r.File < o.File
	}
	return r.Name < o.Name
}

// ClassRecord is the structural summary of one class declaration.
// File, Name and the source span are carried by the enclosing index
// keys when persisted, so only the four structural fields are serialized.
type ClassRecord struct {
	File       string   `json:"-"`
	Name       string   `json:"-"`
	Methods    []string `json:"methods"`
	Attributes []string `json:"attributes"` // set, kept sorted
	Properties []string `json:"properties"`
	Parents    []string `json:"parents"`
	StartLine  uint32   `json:"-"`
	EndLine    uint32   `json:"-"`
	Source     string   `json:"-"`
}

// Ref returns the identity of the record.
func (c *ClassRecord) Ref() ClassRef {
	return ClassRef{File: c.File, Name: c.Name}
}

// MethodSet returns the methods as a set.
func (c *ClassRecord) MethodSet() map[string]struct{} {
	return toSet(c.Methods)
}

// AttributeSet returns the attributes as a set.
func (c *ClassRecord) AttributeSet() map[string]struct{} {
	return toSet(c.Attributes)
}

// HasParent reports whether the class declares any of the given base names.
func (c *ClassRecord) HasParent(names ...string) bool {
	for _, p := range c.Parents {
		if slices.Contains(names, p) {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}

// RepositoryIndex maps file path to class name to record. It is the
// persisted "class map" document.
type RepositoryIndex map[string]map[string]*ClassRecord

// Add inserts a record, replacing any record with the same identity.
func (idx RepositoryIndex) Add(rec *ClassRecord) {
	classes, ok := idx[rec.File]
	if !ok {
		classes = make(map[string]*ClassRecord)
		idx[rec.File] = classes
	}
	classes[rec.Name] = rec
}

// Get returns the record for a ref.
func (idx RepositoryIndex) Get(ref ClassRef) (*ClassRecord, bool) {
	rec, ok := idx[ref.File][ref.Name]
	return rec, ok
}

// Files returns file paths in lexicographic order.
func (idx RepositoryIndex) Files() []string {
	files := make([]string, 0, len(idx))
	for f := range idx {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Records returns every record ordered by file path, then class name.
func (idx RepositoryIndex) Records() []*ClassRecord {
	var out []*ClassRecord
	for _, f := range idx.Files() {
		names := make([]string, 0, len(idx[f]))
		for n := range idx[f] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			out = append(out, idx[f][n])
		}
	}
	return out
}

// Len returns the number of classes in the index.
func (idx RepositoryIndex) Len() int {
	n := 0
	for _, classes := range idx {
		n += len(classes)
	}
	return n
}

// Normalize restores File and Name on every record from the map keys and
// replaces nil slices with empty ones. Used after decoding a class map.
func (idx RepositoryIndex) Normalize() {
	for file, classes := range idx {
		for name, rec := range classes {
			if rec == nil {
				rec = &ClassRecord{}
				classes[name] = rec
			}
			rec.File = file
			rec.Name = name
			rec.Methods = nonNil(rec.Methods)
			rec.Attributes = nonNil(rec.Attributes)
			rec.Properties = nonNil(rec.Properties)
			rec.Parents = nonNil(rec.Parents)
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
