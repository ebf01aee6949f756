package classify

import (
	"sort"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// TrendDirection labels how a category's error volume moves over a window.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Trend summarizes one category's activity over the analyzed window.
type Trend struct {
	Category   domain.Category `json:"category"`
	Direction  TrendDirection  `json:"direction"`
	Total      int             `json:"total"`
	FirstHalf  int             `json:"first_half"`
	SecondHalf int             `json:"second_half"`
}

// TrendOptions parameterizes AnalyzeTrends.
type TrendOptions struct {
	Window    time.Duration
	Buckets   int
	Tolerance float64 // relative delta beyond which a category is trending
}

// AnalyzeTrends is a pure function over a window of already-seen events.
// Events older than the window (relative to the newest event) are ignored.
// Counts are bucketed by time and the first-half sum is compared against
// the second-half sum; a relative delta above Tolerance marks the category
// increasing or decreasing, otherwise stable.
func (c *Classifier) AnalyzeTrends(events []*domain.ErrorEvent, opts TrendOptions) []Trend {
	if len(events) == 0 {
		return nil
	}
	if opts.Window <= 0 {
		opts.Window = time.Hour
	}
	if opts.Buckets < 2 {
		opts.Buckets = 6
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 0.2
	}

	var newest time.Time
	for _, ev := range events {
		if ev.LastSeen.After(newest) {
			newest = ev.LastSeen
		}
	}
	windowStart := newest.Add(-opts.Window)
	bucketSpan := opts.Window / time.Duration(opts.Buckets)

	// category -> bucket -> count
	buckets := make(map[domain.Category][]int)
	for _, ev := range events {
		if ev.LastSeen.Before(windowStart) {
			continue
		}
		cat := c.Classify(ev).Category
		if buckets[cat] == nil {
			buckets[cat] = make([]int, opts.Buckets)
		}
		idx := int(ev.LastSeen.Sub(windowStart) / bucketSpan)
		if idx >= opts.Buckets {
			idx = opts.Buckets - 1
		}
		if idx < 0 {
			idx = 0
		}
		count := ev.Count
		if count <= 0 {
			count = 1
		}
		buckets[cat][idx] += count
	}

	trends := make([]Trend, 0, len(buckets))
	half := opts.Buckets / 2
	for cat, counts := range buckets {
		t := Trend{Category: cat, Direction: TrendStable}
		for i, n := range counts {
			t.Total += n
			if i < half {
				t.FirstHalf += n
			} else {
				t.SecondHalf += n
			}
		}
		switch {
		case t.FirstHalf == 0 && t.SecondHalf > 0:
			t.Direction = TrendIncreasing
		case t.FirstHalf > 0:
			delta := float64(t.SecondHalf-t.FirstHalf) / float64(t.FirstHalf)
			if delta > opts.Tolerance {
				t.Direction = TrendIncreasing
			} else if delta < -opts.Tolerance {
				t.Direction = TrendDecreasing
			}
		}
		trends = append(trends, t)
	}

	sort.Slice(trends, func(i, j int) bool {
		if trends[i].Total != trends[j].Total {
			return trends[i].Total > trends[j].Total
		}
		return trends[i].Category < trends[j].Category
	})
	return trends
}
