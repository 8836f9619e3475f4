package rank

import (
	"context"

	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
	"github.com/kailas-cloud/citymatch/internal/domain/vector"
)

// Encoder maps a tag set onto the vector space used for scoring.
type Encoder interface {
	Encode(ctx context.Context, tags []string) (vector.Vector, error)
	Dimensions() int
}

// DislikeReader loads a user's dislike weights.
type DislikeReader interface {
	Get(ctx context.Context, userID string) (ranking.DislikeWeights, error)
}

// ProfileBuilder turns request preferences into a user vector.
type ProfileBuilder interface {
	Build(ctx context.Context, p *ranking.Preferences) (vector.Vector, error)
}
