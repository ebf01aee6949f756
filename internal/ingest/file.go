package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// FileSource serves a fixed batch of events from a JSON file, for offline
// analysis. The whole file is delivered on the first fetch; subsequent
// fetches return nothing.
type FileSource struct {
	Path string
}

const fileCheckpointDone = "done"

func (s *FileSource) FetchNewEvents(ctx context.Context, checkpoint string) ([]*domain.ErrorEvent, string, error) {
	if checkpoint == fileCheckpointDone {
		return nil, fileCheckpointDone, nil
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, checkpoint, fmt.Errorf("failed to read events file: %w", err)
	}

	var events []*domain.ErrorEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, checkpoint, fmt.Errorf("failed to parse events file: %w", err)
	}
	return events, fileCheckpointDone, nil
}
