package report

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/panbanda/kindred/internal/output"
	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"gonum.org/v1/gonum/stat"
)

// TopN bounds the ranked lists in Stats.
const TopN = 10

// ComputeStats summarizes the classes in h. filesScanned is the number of
// files the scan visited, including files with no classes; when it is
// smaller than the number of indexed files the indexed count is used.
func ComputeStats(h *hierarchy.Hierarchy, filesScanned int) Stats {
	idx := h.Index()
	records := idx.Records()

	s := Stats{
		TotalFiles:       max(filesScanned, len(idx)),
		FilesWithClasses: len(idx),
		TotalClasses:     len(records),
		TopFiles:         []FileCount{},
		TopParents:       []ParentCount{},
	}

	methods := make([]float64, len(records))
	attrs := make([]float64, len(records))
	props := make([]float64, len(records))
	for i, rec := range records {
		methods[i] = float64(len(rec.Methods))
		attrs[i] = float64(len(rec.Attributes))
		props[i] = float64(len(rec.Properties))
		s.TotalMethods += len(rec.Methods)
		s.TotalAttributes += len(rec.Attributes)
		s.TotalProperties += len(rec.Properties)

		ref := rec.Ref()
		if h.IsRoot(ref) {
			s.RootClasses++
		}
		if h.IsLeaf(ref) {
			s.LeafClasses++
		}
		s.MaxDepth = max(s.MaxDepth, h.Depth(ref))
	}
	if len(records) > 0 {
		s.AvgMethods = stat.Mean(methods, nil)
		s.AvgAttributes = stat.Mean(attrs, nil)
		s.AvgProperties = stat.Mean(props, nil)
		slices.Sort(methods)
		s.P90Methods = stat.Quantile(0.9, stat.Empirical, methods, nil)
	}

	for _, file := range idx.Files() {
		s.TopFiles = append(s.TopFiles, FileCount{File: file, Classes: len(idx[file])})
	}
	slices.SortStableFunc(s.TopFiles, func(a, b FileCount) int {
		return cmp.Compare(b.Classes, a.Classes)
	})
	s.TopFiles = s.TopFiles[:min(TopN, len(s.TopFiles))]

	for _, parent := range h.Parents() {
		s.TopParents = append(s.TopParents, ParentCount{Parent: parent, Children: len(h.Children(parent))})
	}
	slices.SortStableFunc(s.TopParents, func(a, b ParentCount) int {
		return cmp.Compare(b.Children, a.Children)
	})
	s.TopParents = s.TopParents[:min(TopN, len(s.TopParents))]

	return s
}

// StatsReport renders s as a summary table followed by the ranked lists.
func StatsReport(s Stats) *output.Report {
	summary := output.NewTable("Class Statistics", []string{"Metric", "Value"}, [][]string{
		{"Files scanned", fmt.Sprint(s.TotalFiles)},
		{"Files with classes", fmt.Sprint(s.FilesWithClasses)},
		{"Classes", fmt.Sprint(s.TotalClasses)},
		{"Methods", fmt.Sprint(s.TotalMethods)},
		{"Attributes", fmt.Sprint(s.TotalAttributes)},
		{"Properties", fmt.Sprint(s.TotalProperties)},
		{"Avg methods per class", fmt.Sprintf("%.2f", s.AvgMethods)},
		{"Avg attributes per class", fmt.Sprintf("%.2f", s.AvgAttributes)},
		{"Avg properties per class", fmt.Sprintf("%.2f", s.AvgProperties)},
		{"P90 methods per class", fmt.Sprintf("%.0f", s.P90Methods)},
		{"Root classes", fmt.Sprint(s.RootClasses)},
		{"Leaf classes", fmt.Sprint(s.LeafClasses)},
		{"Max depth", fmt.Sprint(s.MaxDepth)},
	}, nil, nil)

	files := make([][]string, len(s.TopFiles))
	for i, f := range s.TopFiles {
		files[i] = []string{f.File, fmt.Sprint(f.Classes)}
	}
	parents := make([][]string, len(s.TopParents))
	for i, p := range s.TopParents {
		parents[i] = []string{p.Parent, fmt.Sprint(p.Children)}
	}

	return &output.Report{
		Title: "Class Statistics",
		Data:  s,
		Sections: []output.Renderable{
			summary,
			output.NewTable("Top Files", []string{"File", "Classes"}, files, nil, nil),
			output.NewTable("Top Parents", []string{"Parent", "Children"}, parents, nil, nil),
		},
	}
}
