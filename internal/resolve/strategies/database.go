package strategies

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// PoolStats is a snapshot of a connection pool.
type PoolStats struct {
	Open    int
	InUse   int
	MaxOpen int
}

// PoolController is the action adapter for database remediation.
type PoolController interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (PoolStats, error)
	Resize(ctx context.Context, maxOpen int) error
}

// SQLPoolController adapts a *sql.DB to the PoolController interface.
type SQLPoolController struct {
	DB *sql.DB
}

func (c *SQLPoolController) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *SQLPoolController) Stats(ctx context.Context) (PoolStats, error) {
	s := c.DB.Stats()
	return PoolStats{Open: s.OpenConnections, InUse: s.InUse, MaxOpen: s.MaxOpenConnections}, nil
}

func (c *SQLPoolController) Resize(ctx context.Context, maxOpen int) error {
	c.DB.SetMaxOpenConns(maxOpen)
	return nil
}

// DatabaseConnectionStrategy recycles and grows an exhausted connection
// pool. Resizing is reversible; the previous pool size goes into the
// rollback info.
type DatabaseConnectionStrategy struct {
	meta
	pool       PoolController
	growFactor int // additional connections to allow when growing
	maxCeiling int // never grow past this
}

// NewDatabaseConnectionStrategy creates the strategy over a pool adapter.
func NewDatabaseConnectionStrategy(pool PoolController) *DatabaseConnectionStrategy {
	return &DatabaseConnectionStrategy{
		meta:       meta{name: "database_connection", confidence: 0.85, safety: domain.SafetyMedium, complexity: 2},
		pool:       pool,
		growFactor: 5,
		maxCeiling: 100,
	}
}

func (s *DatabaseConnectionStrategy) Validate(event *domain.ErrorEvent, cl domain.Classification) bool {
	return cl.Category == domain.CategoryDatabase
}

func (s *DatabaseConnectionStrategy) Execute(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, dryRun bool) (*domain.StrategyResult, error) {
	stats, err := s.pool.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("pool stats: %w", err)
	}

	target := stats.MaxOpen + s.growFactor
	if target > s.maxCeiling {
		target = s.maxCeiling
	}

	actions := []string{
		"ping database to verify connectivity",
		fmt.Sprintf("resize connection pool %d -> %d", stats.MaxOpen, target),
	}
	if dryRun {
		return &domain.StrategyResult{Success: true, Message: "planned database remediation", ActionsTaken: actions}, nil
	}

	if err := s.pool.Ping(ctx); err != nil {
		return &domain.StrategyResult{
			Success:      false,
			Message:      fmt.Sprintf("database unreachable: %v", err),
			ActionsTaken: actions[:1],
		}, nil
	}

	// Re-check before resizing so a second execution does not grow the
	// pool twice.
	if stats.MaxOpen >= s.maxCeiling {
		return &domain.StrategyResult{
			Success:      true,
			Message:      "pool already at ceiling, connectivity verified",
			ActionsTaken: actions[:1],
		}, nil
	}

	if err := s.pool.Resize(ctx, target); err != nil {
		return nil, fmt.Errorf("pool resize: %w", err)
	}

	return &domain.StrategyResult{
		Success:      true,
		Message:      fmt.Sprintf("connection pool resized to %d", target),
		ActionsTaken: actions,
		RollbackInfo: map[string]string{"previous_max_open": strconv.Itoa(stats.MaxOpen)},
	}, nil
}

func (s *DatabaseConnectionStrategy) Rollback(ctx context.Context, info map[string]string) error {
	prev, err := strconv.Atoi(info["previous_max_open"])
	if err != nil {
		return fmt.Errorf("invalid rollback info %q: %w", info["previous_max_open"], err)
	}
	return s.pool.Resize(ctx, prev)
}
