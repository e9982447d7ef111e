package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/cozyartz/michiganspots/internal/spots"
)

// storageErr classifies an infrastructure failure. Domain sentinels pass
// through untouched.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, spots.ErrStorageTimeout) || errors.Is(err, spots.ErrStorageConflict) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", spots.ErrStorageTimeout, err)
	}
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %w", spots.ErrStorageConflict, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return fmt.Errorf("%w: %w", spots.ErrStorageConflict, err)
	}
	return err
}
