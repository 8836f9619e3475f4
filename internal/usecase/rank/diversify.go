package rank

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
)

// DefaultLambda weighs relevance and novelty equally.
const DefaultLambda = 0.5

// Diversify reorders candidates with Maximal Marginal Relevance. The seed is
// the most relevant candidate; each following pick maximizes
//
//	lambda*score - (1-lambda)*minSim
//
// where minSim is the smallest cosine similarity to anything already picked.
// Ties go to the earliest candidate. The result is a permutation of the input
// and costs O(n^2) similarity evaluations, so callers should bound n.
func Diversify[T any](cands []ranking.Candidate[T], lambda float64) ([]ranking.Candidate[T], error) {
	if lambda < 0 || lambda > 1 || math.IsNaN(lambda) {
		return nil, fmt.Errorf("%w, got %v", domain.ErrInvalidLambda, lambda)
	}
	if len(cands) <= 1 {
		return cands, nil
	}
	dim := len(cands[0].Vector)
	for i := range cands {
		if len(cands[i].Vector) != dim {
			return nil, fmt.Errorf("candidate %d: %w: %d vs %d",
				i, domain.ErrVectorDimMismatch, len(cands[i].Vector), dim)
		}
	}

	cos := func(a, b int) float64 {
		s, _ := vector.Cosine(cands[a].Vector, cands[b].Vector) // dims checked above
		return s
	}

	seed := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].Score > cands[seed].Score {
			seed = i
		}
	}

	// pool holds original indices in input order; minSim is aligned with pool.
	pool := make([]int, 0, len(cands)-1)
	minSim := make([]float64, 0, len(cands)-1)
	for i := range cands {
		if i != seed {
			pool = append(pool, i)
			minSim = append(minSim, cos(i, seed))
		}
	}

	out := make([]ranking.Candidate[T], 0, len(cands))
	out = append(out, cands[seed])

	for len(pool) > 0 {
		best := 0
		bestScore := math.Inf(-1)
		for p, idx := range pool {
			mmr := lambda*cands[idx].Score - (1-lambda)*minSim[p]
			if mmr > bestScore {
				best, bestScore = p, mmr
			}
		}

		picked := pool[best]
		out = append(out, cands[picked])
		pool = append(pool[:best], pool[best+1:]...)
		minSim = append(minSim[:best], minSim[best+1:]...)

		for p, idx := range pool {
			if s := cos(idx, picked); s < minSim[p] {
				minSim[p] = s
			}
		}
	}
	return out, nil
}
