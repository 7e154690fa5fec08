package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/projpool/projpool/internal/logger"
	"github.com/projpool/projpool/internal/metrics"
	"github.com/projpool/projpool/internal/repository"
)

// Name of the scheduled job and its trigger: every day at 03:00
const (
	JobID       = "cleanup_revoked_tokens"
	JobSchedule = "0 3 * * *"
)

const defaultTimeout = 5 * time.Minute

type recorder interface {
	TokensCleaned(n int64)
	CleanupRun(result string)
}

// Cleaner removes blocklist records of tokens that expired anyway
type Cleaner struct {
	blocklist repository.BlocklistRepo
	logger    logger.Logger
	metrics   recorder
	timeout   time.Duration

	// Replaced in tests
	now func() time.Time
}

// New returns cleaner. blocklist has to be bound to the pool, not to request transaction
func New(blocklist repository.BlocklistRepo, l logger.Logger, m recorder) (*Cleaner, error) {
	if blocklist == nil {
		return nil, errors.New("blocklist must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	if m == nil {
		m = (*metrics.Metrics)(nil)
	}

	return &Cleaner{
		blocklist: blocklist,
		logger:    l.With("job", JobID),
		metrics:   m,
		timeout:   defaultTimeout,
		now:       time.Now,
	}, nil
}

// CleanupRevokedTokens deletes records which underlying token expired.
// Unexpired revocations stay. Running it again right away deletes nothing.
func (c *Cleaner) CleanupRevokedTokens(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	deleted, err := c.blocklist.DeleteExpired(ctx, start)
	if err != nil {
		c.metrics.CleanupRun(metrics.ResultFailure)
		return 0, fmt.Errorf("error while deleting expired revoked tokens. Err: %w", err)
	}

	c.metrics.TokensCleaned(deleted)
	c.metrics.CleanupRun(metrics.ResultSuccess)
	c.logger.Info("revoked tokens cleaned up", "deleted", deleted, "duration", time.Since(start))

	return deleted, nil
}

// Run is CleanupRevokedTokens in scheduler job shape
func (c *Cleaner) Run(ctx context.Context) error {
	_, err := c.CleanupRevokedTokens(ctx)
	return err
}
