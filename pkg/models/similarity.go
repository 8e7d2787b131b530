package models

import "sort"

// SimilarityPair is two sibling classes whose method or attribute sets
// overlap by more than the similarity threshold.
type SimilarityPair struct {
	Class1              ClassRef `json:"class1"`
	Class2              ClassRef `json:"class2"`
	MethodSimilarity    float64  `json:"method_similarity"`
	AttributeSimilarity float64  `json:"attribute_similarity"`
}

// SimilarityReport maps a parent name to the qualifying pairs of its
// children. Parents with no qualifying pair are absent.
type SimilarityReport map[string][]SimilarityPair

// Parents returns parent names in lexicographic order.
func (r SimilarityReport) Parents() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pairs returns the total number of reported pairs.
func (r SimilarityReport) Pairs() int {
	n := 0
	for _, pairs := range r {
		n += len(pairs)
	}
	return n
}
