// Package cluster groups classes by the cosine similarity of their source
// embeddings.
//
// Clustering is greedy and seed-only: the first unclaimed class opens a
// cluster and every later unclaimed class whose embedding is within the
// threshold of that seed joins it. Members are never compared with each
// other, so similarity does not chain: with cos(A,B)=0.9, cos(B,C)=0.9 and
// cos(A,C) below a threshold of 0.85, the result is {A,B} and {C}.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/kindred/internal/fileproc"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/embed"
	"github.com/panbanda/kindred/pkg/models"
	"gonum.org/v1/gonum/floats"
)

// DimensionError marks a vector whose length differs from the first
// successful embedding of the run.
type DimensionError struct {
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding has dimension %d, want %d", e.Got, e.Want)
}

// Items returns one cluster member per indexed class, ordered by file then
// name. When bases is non-empty only classes declaring at least one of
// those parents are returned.
func Items(idx models.RepositoryIndex, bases []string) []models.ClusterMember {
	var items []models.ClusterMember
	for _, rec := range idx.Records() {
		if len(bases) > 0 && !rec.HasParent(bases...) {
			continue
		}
		items = append(items, models.ClusterMember{
			ClassName: rec.Name,
			Bases:     slices.Clone(rec.Parents),
			File:      rec.File,
			Source:    rec.Source,
			StartLine: rec.StartLine,
		})
	}
	return items
}

// Cosine returns u·v / (‖u‖‖v‖). It is 0 when either vector has zero norm
// or the dimensions differ.
func Cosine(u, v []float64) float64 {
	if len(u) == 0 || len(u) != len(v) {
		return 0
	}
	nu, nv := floats.Norm(u, 2), floats.Norm(v, 2)
	if nu == 0 || nv == 0 {
		return 0
	}
	sim := floats.Dot(u, v) / (nu * nv)
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

// Acquire embeds every item's source with at most workers concurrent calls.
// The returned outcomes align with items. Items that were never attempted
// because ctx ended carry an *embed.ExhaustedError wrapping ctx.Err(), and
// vectors whose dimension disagrees with the first success are failures.
func Acquire(ctx context.Context, items []models.ClusterMember, e embed.Embedder, workers int, onProgress fileproc.ProgressFunc) ([]embed.Outcome, error) {
	outcomes, err := fileproc.Map(ctx, items, workers, func(ctx context.Context, item models.ClusterMember) embed.Outcome {
		vec, err := e.Embed(ctx, item.Source)
		if err != nil {
			return embed.Outcome{Err: err}
		}
		return embed.Outcome{Vector: vec}
	}, onProgress)

	dim := 0
	for i := range outcomes {
		o := &outcomes[i]
		switch {
		case o.Err == nil && o.Vector == nil:
			cause := err
			if cause == nil {
				cause = embed.ErrEmptyVector
			}
			o.Err = &embed.ExhaustedError{Err: cause}
		case o.Err != nil:
		case dim == 0:
			dim = len(o.Vector)
		case len(o.Vector) != dim:
			o.Err = &DimensionError{Want: dim, Got: len(o.Vector)}
			o.Vector = nil
		}
	}
	return outcomes, err
}

// Cluster partitions the successfully embedded items at threshold tau.
// Failed items are left out of every cluster and reported as
// embedding_failure diagnostics. Clusters are ordered by seed position and
// members by input position.
func Cluster(items []models.ClusterMember, outcomes []embed.Outcome, tau float64) (models.ClusterList, []models.Diagnostic, error) {
	if err := config.ValidateClusterThreshold(tau); err != nil {
		return nil, nil, err
	}
	if len(items) != len(outcomes) {
		return nil, nil, fmt.Errorf("cluster: %d items but %d embeddings", len(items), len(outcomes))
	}

	var diags []models.Diagnostic
	valid := make([]int, 0, len(items))
	for i, o := range outcomes {
		if o.OK() {
			valid = append(valid, i)
			continue
		}
		diags = append(diags, failure(items[i], o.Err))
	}

	claimed := roaring.New()
	clusters := models.ClusterList{}
	for a, i := range valid {
		if claimed.Contains(uint32(i)) {
			continue
		}
		claimed.Add(uint32(i))
		seed := outcomes[i].Vector
		c := models.Cluster{items[i]}

		for _, j := range valid[a+1:] {
			if claimed.Contains(uint32(j)) {
				continue
			}
			if Cosine(seed, outcomes[j].Vector) >= tau {
				claimed.Add(uint32(j))
				c = append(c, items[j])
			}
		}
		clusters = append(clusters, c)
	}

	return clusters, diags, nil
}

func failure(item models.ClusterMember, err error) models.Diagnostic {
	msg := err.Error()
	var exhausted *embed.ExhaustedError
	if errors.As(err, &exhausted) && exhausted.Err != nil {
		msg = fmt.Sprintf("%v (after %d attempt(s))", exhausted.Err, exhausted.Attempts)
	}
	return models.Diagnostic{
		Kind:    models.DiagEmbeddingFailure,
		File:    item.File,
		Class:   item.ClassName,
		Message: msg,
	}
}
