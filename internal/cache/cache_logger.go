package cache

import (
	"context"
	"log/slog"
)

// BatchInvalidate invalidates pattern in every helper and returns the last error
func BatchInvalidate(ctx context.Context, helpers []*CacheHelper, pattern string) error {
	var lastErr error
	for _, helper := range helpers {
		if err := helper.InvalidatePattern(ctx, pattern); err != nil {
			lastErr = err
			slog.ErrorContext(ctx, "Failed to invalidate pattern in batch",
				"error", err,
				"prefix", helper.prefix,
				"pattern", pattern)
		}
	}
	return lastErr
}
