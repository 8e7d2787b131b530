package report

import (
	"fmt"
	"strings"

	"github.com/panbanda/kindred/internal/output"
	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"github.com/panbanda/kindred/pkg/models"
)

// ClassesTable lists every class in the index with its structural counts.
func ClassesTable(idx models.RepositoryIndex) *output.Table {
	records := idx.Records()
	rows := make([][]string, len(records))
	methods := 0
	for i, rec := range records {
		rows[i] = []string{
			rec.Name,
			rec.File,
			strings.Join(rec.Parents, ", "),
			fmt.Sprint(len(rec.Methods)),
			fmt.Sprint(len(rec.Attributes)),
			fmt.Sprint(len(rec.Properties)),
		}
		methods += len(rec.Methods)
	}
	return output.NewTable("Classes",
		[]string{"Class", "File", "Parents", "Methods", "Attributes", "Properties"},
		rows,
		[]string{fmt.Sprintf("%d classes", len(records)), fmt.Sprintf("%d files", len(idx)), "", fmt.Sprint(methods), "", ""},
		idx,
	)
}

// HierarchyReport lists every parent name with its children, followed by
// the root and leaf classes.
func HierarchyReport(h *hierarchy.Hierarchy) *output.Report {
	parents := h.Parents()
	rows := make([][]string, 0, len(parents))
	data := make(map[string][]models.ClassRef, len(parents))
	for _, p := range parents {
		children := h.Children(p)
		data[p] = children
		names := make([]string, len(children))
		for i, c := range children {
			names[i] = c.String()
		}
		external := ""
		if len(h.Resolve(p)) == 0 {
			external = "yes"
		}
		rows = append(rows, []string{p, fmt.Sprint(len(children)), external, strings.Join(names, ", ")})
	}

	return &output.Report{
		Title: "Class Hierarchy",
		Data:  data,
		Sections: []output.Renderable{
			output.NewTable("Parents", []string{"Parent", "Children", "External", "Classes"}, rows, nil, nil),
			&output.Section{Title: "Roots", Content: joinRefs(h.Roots())},
			&output.Section{Title: "Leaves", Content: joinRefs(h.Leaves())},
		},
	}
}

func joinRefs(refs []models.ClassRef) string {
	if len(refs) == 0 {
		return "(none)"
	}
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, "\n")
}

// SimilarityTable lists reported sibling pairs grouped by parent.
func SimilarityTable(report models.SimilarityReport) *output.Table {
	var rows [][]string
	for _, parent := range report.Parents() {
		for _, p := range report[parent] {
			rows = append(rows, []string{
				parent,
				p.Class1.String(),
				p.Class2.String(),
				fmt.Sprintf("%.3f", p.MethodSimilarity),
				fmt.Sprintf("%.3f", p.AttributeSimilarity),
			})
		}
	}
	return output.NewTable("Sibling Similarity",
		[]string{"Parent", "Class 1", "Class 2", "Methods", "Attributes"},
		rows,
		[]string{fmt.Sprintf("%d parents", len(report)), fmt.Sprintf("%d pairs", report.Pairs()), "", "", ""},
		report,
	)
}

// ClustersTable lists cluster members with their cluster number.
func ClustersTable(clusters models.ClusterList) *output.Table {
	rows := make([][]string, 0, clusters.Members())
	for i, c := range clusters {
		for _, m := range c {
			rows = append(rows, []string{fmt.Sprint(i + 1), m.ClassName, m.File, strings.Join(m.Bases, ", ")})
		}
	}
	return output.NewTable("Clusters",
		[]string{"Cluster", "Class", "File", "Bases"},
		rows,
		[]string{fmt.Sprintf("%d clusters", len(clusters)), fmt.Sprintf("%d classes", clusters.Members()), "", ""},
		clusters,
	)
}
