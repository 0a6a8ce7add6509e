package navigation

import (
	"context"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
)

// DetectionSource performs one radio scan. Timeouts are the source's concern;
// Scan should return promptly once ctx is cancelled.
type DetectionSource interface {
	Scan(ctx context.Context) ([]positioning.Detection, error)
}

// OrientationSource reports the latest device orientation, or false if
// none has been received yet.
type OrientationSource interface {
	Orientation() (projection.Orientation, bool)
}
