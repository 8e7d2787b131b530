// Package similarity compares sibling classes by the overlap of their
// method and attribute sets.
package similarity

import (
	"context"

	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/models"
)

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Compare returns the method and attribute similarity of two records.
func Compare(a, b *models.ClassRecord) (methods, attributes float64) {
	return Jaccard(a.MethodSet(), b.MethodSet()), Jaccard(a.AttributeSet(), b.AttributeSet())
}

// Group reports, for each parent with at least two children, every pair of
// children whose method or attribute similarity strictly exceeds threshold.
// Pairs are (i, j) with i before j in the parent's child order. Parents
// without a qualifying pair are omitted.
func Group(ctx context.Context, h *hierarchy.Hierarchy, threshold float64) (models.SimilarityReport, error) {
	if err := config.ValidateSimilarityThreshold(threshold); err != nil {
		return nil, err
	}

	idx := h.Index()
	report := models.SimilarityReport{}
	for _, parent := range h.Parents() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		children := h.Children(parent)
		if len(children) < 2 {
			continue
		}

		records := make([]*models.ClassRecord, len(children))
		for i, ref := range children {
			records[i], _ = idx.Get(ref)
		}

		var pairs []models.SimilarityPair
		for i := 0; i < len(records); i++ {
			for j := i + 1; j < len(records); j++ {
				ms, as := Compare(records[i], records[j])
				if ms > threshold || as > threshold {
					pairs = append(pairs, models.SimilarityPair{
						Class1:              children[i],
						Class2:              children[j],
						MethodSimilarity:    ms,
						AttributeSimilarity: as,
					})
				}
			}
		}
		if len(pairs) > 0 {
			report[parent] = pairs
		}
	}

	return report, nil
}
