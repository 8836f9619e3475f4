package rank

import "github.com/kailas-cloud/citymatch/internal/domain/ranking"

// PenaltyPerWeight is the score removed per dislike weight point.
const PenaltyPerWeight = 0.05

// Penalty sums PenaltyPerWeight*weight over disliked categories present in
// targetTags. Weights must be within [1,5].
func Penalty(targetTags []string, dislikes ranking.DislikeWeights) (float64, error) {
	if err := dislikes.Validate(); err != nil {
		return 0, err //nolint:wrapcheck // validation error carries the category
	}
	return penalty(targetTags, dislikes), nil
}

// penalty assumes validated weights.
func penalty(targetTags []string, dislikes ranking.DislikeWeights) float64 {
	if len(targetTags) == 0 || len(dislikes) == 0 {
		return 0
	}
	var p float64
	seen := make(map[string]struct{}, len(targetTags))
	for _, t := range targetTags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if w, ok := dislikes[t]; ok {
			p += PenaltyPerWeight * float64(w)
		}
	}
	return p
}
