package strategies

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// MemoryUsage is a snapshot of process memory.
type MemoryUsage struct {
	HeapAllocBytes uint64
	SysBytes       uint64
}

// MemoryController is the action adapter for memory remediation.
type MemoryController interface {
	Usage(ctx context.Context) (MemoryUsage, error)
	FreeMemory(ctx context.Context) error
	FlushCaches(ctx context.Context) (entriesDropped int, err error)
}

// CacheFlusher drops entries from one process-local cache and reports how
// many were removed.
type CacheFlusher func(ctx context.Context) (int, error)

// RuntimeMemoryController remediates memory pressure in-process via the
// Go runtime plus any registered cache flushers.
type RuntimeMemoryController struct {
	flushers []CacheFlusher
}

// NewRuntimeMemoryController creates the controller; flushers are optional.
func NewRuntimeMemoryController(flushers ...CacheFlusher) *RuntimeMemoryController {
	return &RuntimeMemoryController{flushers: flushers}
}

func (c *RuntimeMemoryController) Usage(ctx context.Context) (MemoryUsage, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemoryUsage{HeapAllocBytes: ms.HeapAlloc, SysBytes: ms.Sys}, nil
}

func (c *RuntimeMemoryController) FreeMemory(ctx context.Context) error {
	debug.FreeOSMemory()
	return nil
}

func (c *RuntimeMemoryController) FlushCaches(ctx context.Context) (int, error) {
	total := 0
	for _, f := range c.flushers {
		n, err := f(ctx)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// MemoryLeakStrategy flushes caches and returns freed memory to the OS.
// The action is not reversible, so no rollback info is produced.
type MemoryLeakStrategy struct {
	meta
	mem MemoryController
}

func NewMemoryLeakStrategy(mem MemoryController) *MemoryLeakStrategy {
	return &MemoryLeakStrategy{
		meta: meta{name: "memory_pressure", confidence: 0.7, safety: domain.SafetySafe, complexity: 1},
		mem:  mem,
	}
}

func (s *MemoryLeakStrategy) Validate(event *domain.ErrorEvent, cl domain.Classification) bool {
	return cl.Category == domain.CategoryMemory
}

func (s *MemoryLeakStrategy) Execute(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, dryRun bool) (*domain.StrategyResult, error) {
	before, err := s.mem.Usage(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory usage: %w", err)
	}

	actions := []string{
		"flush process caches",
		"force garbage collection and return memory to OS",
	}
	if dryRun {
		return &domain.StrategyResult{Success: true, Message: "planned memory remediation", ActionsTaken: actions}, nil
	}

	dropped, err := s.mem.FlushCaches(ctx)
	if err != nil {
		return &domain.StrategyResult{
			Success:      false,
			Message:      fmt.Sprintf("cache flush failed: %v", err),
			ActionsTaken: actions[:1],
		}, nil
	}
	if err := s.mem.FreeMemory(ctx); err != nil {
		return nil, fmt.Errorf("free memory: %w", err)
	}

	after, _ := s.mem.Usage(ctx)
	return &domain.StrategyResult{
		Success: true,
		Message: fmt.Sprintf("dropped %d cache entries, heap %d -> %d bytes",
			dropped, before.HeapAllocBytes, after.HeapAllocBytes),
		ActionsTaken: actions,
	}, nil
}

func (s *MemoryLeakStrategy) Rollback(ctx context.Context, info map[string]string) error {
	// Freed memory cannot be un-freed.
	return nil
}
