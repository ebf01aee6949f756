package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// HTTPSource polls a monitoring backend over HTTP. The backend returns a
// batch of events plus an opaque checkpoint to resume from.
type HTTPSource struct {
	URL    string
	Token  string
	Client *http.Client
}

type httpBatch struct {
	Events     []*domain.ErrorEvent `json:"events"`
	Checkpoint string               `json:"checkpoint"`
}

func (s *HTTPSource) FetchNewEvents(ctx context.Context, checkpoint string) ([]*domain.ErrorEvent, string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, checkpoint, fmt.Errorf("invalid telemetry URL: %w", err)
	}
	q := u.Query()
	if checkpoint != "" {
		q.Set("since", checkpoint)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, checkpoint, err
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, checkpoint, fmt.Errorf("telemetry fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, checkpoint, fmt.Errorf("telemetry backend returned %d", resp.StatusCode)
	}

	var batch httpBatch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, checkpoint, fmt.Errorf("decode telemetry response: %w", err)
	}
	if batch.Checkpoint == "" {
		batch.Checkpoint = checkpoint
	}
	return batch.Events, batch.Checkpoint, nil
}
