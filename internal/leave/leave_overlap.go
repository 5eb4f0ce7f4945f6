package leave

import (
	"context"
	"time"

	leaveerrors "go-fleet/internal/leave/errors"
)

// OverlapChecker is a read over active requests of one driver. Run it on a
// transaction-bound repository after the driver lock is held; reads outside
// the lock are advisory only.
type OverlapChecker struct {
	repo Repository
}

func NewOverlapChecker(repo Repository) *OverlapChecker {
	return &OverlapChecker{repo: repo}
}

func (c *OverlapChecker) HasOverlap(ctx context.Context, driverID string, start, end time.Time, excludeID *string) (string, bool, error) {
	return c.repo.FindOverlap(ctx, driverID, start, end, excludeID)
}

// Check returns ErrLeaveOverlap carrying the conflicting request id.
func (c *OverlapChecker) Check(ctx context.Context, driverID string, start, end time.Time, excludeID *string) error {
	conflictID, found, err := c.HasOverlap(ctx, driverID, start, end, excludeID)
	if err != nil {
		return err
	}
	if found {
		return leaveerrors.ErrLeaveOverlap.WithDetails(map[string]any{
			"conflicting_request_id": conflictID,
		})
	}
	return nil
}
