package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(items ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, i := range items {
		s[i] = struct{}{}
	}
	return s
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard(set(), set()))
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.Equal(t, 1.0, Jaccard(set("a", "b"), set("b", "a")))
	assert.Equal(t, 0.0, Jaccard(set("a"), set()))
	assert.InDelta(t, 2.0/3.0, Jaccard(set("a", "b"), set("a", "b", "c")), 1e-12)
	assert.InDelta(t, 1.0/3.0, Jaccard(set("a", "b"), set("b", "c")), 1e-12)
}

func TestJaccardSymmetric(t *testing.T) {
	sets := []map[string]struct{}{
		set(), set("a"), set("a", "b"), set("b", "c", "d"), set("a", "b", "c", "d", "e"),
	}
	for _, a := range sets {
		for _, b := range sets {
			j := Jaccard(a, b)
			assert.Equal(t, j, Jaccard(b, a))
			assert.GreaterOrEqual(t, j, 0.0)
			assert.LessOrEqual(t, j, 1.0)
		}
		if len(a) > 0 {
			assert.Equal(t, 1.0, Jaccard(a, a))
		}
	}
}

func buildIndex(records ...*models.ClassRecord) *hierarchy.Hierarchy {
	idx := models.RepositoryIndex{}
	for _, r := range records {
		idx.Add(r)
	}
	return hierarchy.Build(idx)
}

func TestGroupThresholdIsStrict(t *testing.T) {
	h := buildIndex(
		&models.ClassRecord{File: "m.py", Name: "C1", Methods: []string{"a", "b"}, Parents: []string{"Base"}},
		&models.ClassRecord{File: "m.py", Name: "C2", Methods: []string{"a", "b", "c"}, Parents: []string{"Base"}},
	)

	report, err := Group(context.Background(), h, 0.7)
	require.NoError(t, err)
	assert.Empty(t, report, "2/3 is not above 0.7 and empty attribute sets score 0")

	report, err = Group(context.Background(), h, 0.6)
	require.NoError(t, err)
	require.Len(t, report["Base"], 1)
	pair := report["Base"][0]
	assert.Equal(t, models.ClassRef{File: "m.py", Name: "C1"}, pair.Class1)
	assert.Equal(t, models.ClassRef{File: "m.py", Name: "C2"}, pair.Class2)
	assert.InDelta(t, 2.0/3.0, pair.MethodSimilarity, 1e-12)
	assert.Equal(t, 0.0, pair.AttributeSimilarity)
}

func TestGroupEitherScoreQualifies(t *testing.T) {
	h := buildIndex(
		&models.ClassRecord{File: "m.py", Name: "C1", Methods: []string{"a"}, Attributes: []string{"x", "y"}, Parents: []string{"Base"}},
		&models.ClassRecord{File: "m.py", Name: "C2", Methods: []string{"b"}, Attributes: []string{"x", "y"}, Parents: []string{"Base"}},
	)

	report, err := Group(context.Background(), h, 0.7)
	require.NoError(t, err)
	require.Len(t, report["Base"], 1)
	assert.Equal(t, 0.0, report["Base"][0].MethodSimilarity)
	assert.Equal(t, 1.0, report["Base"][0].AttributeSimilarity)
}

func TestGroupExactThresholdNotReported(t *testing.T) {
	h := buildIndex(
		&models.ClassRecord{File: "m.py", Name: "C1", Methods: []string{"a"}, Parents: []string{"Base"}},
		&models.ClassRecord{File: "m.py", Name: "C2", Methods: []string{"a", "b"}, Parents: []string{"Base"}},
	)

	report, err := Group(context.Background(), h, 0.5)
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestGroupOnlyComparesSiblings(t *testing.T) {
	shared := []string{"read", "write", "stop"}
	attrs := []string{"name", "parent"}
	h := buildIndex(
		&models.ClassRecord{File: "a.py", Name: "A", Methods: shared, Attributes: attrs, Parents: []string{"Device"}},
		&models.ClassRecord{File: "b.py", Name: "B", Methods: shared, Attributes: attrs, Parents: []string{"Signal"}},
		&models.ClassRecord{File: "c.py", Name: "C", Methods: shared, Attributes: attrs, Parents: []string{"Device"}},
	)

	report, err := Group(context.Background(), h, 0.7)
	require.NoError(t, err)
	assert.Equal(t, []string{"Device"}, report.Parents())
	require.Len(t, report["Device"], 1)
	assert.Equal(t, "A", report["Device"][0].Class1.Name)
	assert.Equal(t, "C", report["Device"][0].Class2.Name)
	assert.Equal(t, 1, report.Pairs())
}

func TestGroupPairOrdering(t *testing.T) {
	m := []string{"a"}
	at := []string{"x"}
	h := buildIndex(
		&models.ClassRecord{File: "m.py", Name: "One", Methods: m, Attributes: at, Parents: []string{"P"}},
		&models.ClassRecord{File: "m.py", Name: "Two", Methods: m, Attributes: at, Parents: []string{"P"}},
		&models.ClassRecord{File: "m.py", Name: "Three", Methods: m, Attributes: at, Parents: []string{"P"}},
	)

	report, err := Group(context.Background(), h, 0.5)
	require.NoError(t, err)

	var got [][2]string
	for _, p := range report["P"] {
		got = append(got, [2]string{p.Class1.Name, p.Class2.Name})
	}
	// children are in name order: One, Three, Two
	assert.Equal(t, [][2]string{{"One", "Three"}, {"One", "Two"}, {"Three", "Two"}}, got)
}

func TestGroupRejectsInvalidThreshold(t *testing.T) {
	h := buildIndex()
	for _, theta := range []float64{-0.1, 1, 1.5} {
		_, err := Group(context.Background(), h, theta)
		var verr *config.ValidationError
		assert.True(t, errors.As(err, &verr), "theta=%v", theta)
	}
}
