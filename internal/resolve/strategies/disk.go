package strategies

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// DiskCleaner is the action adapter for disk-pressure remediation.
type DiskCleaner interface {
	// Candidates returns the number of files and total bytes eligible
	// for cleanup without removing anything.
	Candidates(ctx context.Context) (files int, bytes int64, err error)

	// Clean removes eligible files and reports what was freed.
	Clean(ctx context.Context) (files int, bytes int64, err error)
}

// DirCleaner removes files older than MaxAge from the configured
// directories. Deletion is permanent; the strategy reports it as
// irreversible.
type DirCleaner struct {
	Dirs   []string
	MaxAge time.Duration
}

func (c *DirCleaner) Candidates(ctx context.Context) (int, int64, error) {
	return c.walk(ctx, false)
}

func (c *DirCleaner) Clean(ctx context.Context) (int, int64, error) {
	return c.walk(ctx, true)
}

func (c *DirCleaner) walk(ctx context.Context, remove bool) (int, int64, error) {
	cutoff := time.Now().Add(-c.MaxAge)
	files := 0
	var bytes int64

	for _, dir := range c.Dirs {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				// A vanished entry is not a failure during cleanup.
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.ModTime().After(cutoff) {
				return nil
			}
			if remove {
				if err := os.Remove(path); err != nil {
					return nil
				}
			}
			files++
			bytes += info.Size()
			return nil
		})
		if err != nil {
			return files, bytes, fmt.Errorf("walk %s: %w", dir, err)
		}
	}
	return files, bytes, nil
}

// DiskSpaceStrategy frees disk by cleaning temp and log directories.
type DiskSpaceStrategy struct {
	meta
	cleaner DiskCleaner
}

func NewDiskSpaceStrategy(cleaner DiskCleaner) *DiskSpaceStrategy {
	return &DiskSpaceStrategy{
		meta:    meta{name: "disk_space", confidence: 0.85, safety: domain.SafetyMedium, complexity: 2},
		cleaner: cleaner,
	}
}

func (s *DiskSpaceStrategy) Validate(event *domain.ErrorEvent, cl domain.Classification) bool {
	return cl.Category == domain.CategoryDisk
}

func (s *DiskSpaceStrategy) Execute(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, dryRun bool) (*domain.StrategyResult, error) {
	candidates, candidateBytes, err := s.cleaner.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan cleanup candidates: %w", err)
	}

	actions := []string{
		fmt.Sprintf("remove %d expired temp/log files (%d bytes)", candidates, candidateBytes),
	}
	if dryRun {
		return &domain.StrategyResult{Success: true, Message: "planned disk cleanup", ActionsTaken: actions}, nil
	}

	if candidates == 0 {
		return &domain.StrategyResult{
			Success:      false,
			Message:      "no expired files eligible for cleanup",
			ActionsTaken: actions,
		}, nil
	}

	removed, freed, err := s.cleaner.Clean(ctx)
	if err != nil {
		return nil, fmt.Errorf("cleanup: %w", err)
	}

	return &domain.StrategyResult{
		Success:      true,
		Message:      fmt.Sprintf("removed %d files, freed %d bytes", removed, freed),
		ActionsTaken: actions,
	}, nil
}

func (s *DiskSpaceStrategy) Rollback(ctx context.Context, info map[string]string) error {
	return fmt.Errorf("deleted files cannot be restored")
}
