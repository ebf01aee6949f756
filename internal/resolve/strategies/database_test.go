package strategies

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/sentinel/internal/core/domain"
)

type fakePool struct {
	maxOpen int
	pingErr error
	resized []int
}

func (p *fakePool) Ping(ctx context.Context) error { return p.pingErr }

func (p *fakePool) Stats(ctx context.Context) (PoolStats, error) {
	return PoolStats{Open: p.maxOpen, InUse: p.maxOpen, MaxOpen: p.maxOpen}, nil
}

func (p *fakePool) Resize(ctx context.Context, maxOpen int) error {
	p.maxOpen = maxOpen
	p.resized = append(p.resized, maxOpen)
	return nil
}

func TestDatabaseConnectionStrategy_GrowsPool(t *testing.T) {
	pool := &fakePool{maxOpen: 10}
	s := NewDatabaseConnectionStrategy(pool)

	result, err := s.Execute(context.Background(), event("connection pool exhausted"), classified(domain.CategoryDatabase), false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if pool.maxOpen != 15 {
		t.Errorf("expected pool grown to 15, got %d", pool.maxOpen)
	}
	if result.RollbackInfo["previous_max_open"] != "10" {
		t.Errorf("expected rollback info 10, got %q", result.RollbackInfo["previous_max_open"])
	}
}

func TestDatabaseConnectionStrategy_CeilingIsIdempotent(t *testing.T) {
	pool := &fakePool{maxOpen: 100}
	s := NewDatabaseConnectionStrategy(pool)

	result, err := s.Execute(context.Background(), event("too many connections"), classified(domain.CategoryDatabase), false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatal("ceiling execution should still succeed")
	}
	if len(pool.resized) != 0 {
		t.Errorf("pool at ceiling must not be resized, got %v", pool.resized)
	}
}

func TestDatabaseConnectionStrategy_UnreachableDatabaseFails(t *testing.T) {
	pool := &fakePool{maxOpen: 10, pingErr: errors.New("connection refused")}
	s := NewDatabaseConnectionStrategy(pool)

	result, err := s.Execute(context.Background(), event("deadlock detected"), classified(domain.CategoryDatabase), false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success {
		t.Error("unreachable database cannot be a successful remediation")
	}
	if len(pool.resized) != 0 {
		t.Error("must not resize an unreachable pool")
	}
}

func TestDatabaseConnectionStrategy_DryRun(t *testing.T) {
	pool := &fakePool{maxOpen: 10}
	s := NewDatabaseConnectionStrategy(pool)

	result, err := s.Execute(context.Background(), event("sqlstate 08006"), classified(domain.CategoryDatabase), true)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatal("dry run should report success")
	}
	if pool.maxOpen != 10 || len(pool.resized) != 0 {
		t.Error("dry run must not touch the pool")
	}
}

func TestDatabaseConnectionStrategy_Rollback(t *testing.T) {
	pool := &fakePool{maxOpen: 10}
	s := NewDatabaseConnectionStrategy(pool)

	result, _ := s.Execute(context.Background(), event("connection pool exhausted"), classified(domain.CategoryDatabase), false)
	if err := s.Rollback(context.Background(), result.RollbackInfo); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if pool.maxOpen != 10 {
		t.Errorf("rollback should restore 10, got %d", pool.maxOpen)
	}

	if err := s.Rollback(context.Background(), map[string]string{}); err == nil {
		t.Error("missing rollback info must error")
	}
}
