package ports

import (
	"context"

	"github.com/canne/csm-router/internal/domain"
)

// Reviewer is the external verdict authority for proposals. Implementations
// must translate a timeout into a rejected verdict (nil error) so the retry
// loop applies; only transport-level failures return an error.
type Reviewer interface {
	Review(ctx context.Context, req domain.ReviewRequest) (domain.ReviewVerdict, error)
}
