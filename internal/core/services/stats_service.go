package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
)

// detailConcurrency bounds parallel detail requests while collecting stats
const detailConcurrency = 4

// Count is one labelled value of a distribution
type Count struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// LibraryStats summarizes the project library
type LibraryStats struct {
	Projects      int     `json:"projects"`
	Untagged      int     `json:"untagged"`
	WithMainImage int     `json:"with_main_image"`
	Tags          []Count `json:"tags"`             // Projects per tag, most used first
	Activity      []Count `json:"activity"`         // Projects updated per month, oldest first
	AssetsByKind  []Count `json:"assets_by_kind"`   // Only with assets
	BytesByKind   []Count `json:"bytes_by_kind"`    // Only with assets
	TotalBytes    int64   `json:"total_bytes"`      // Only with assets
	IncludeAssets bool    `json:"include_assets"`
}

// StatsService aggregates the library for reporting
type StatsService struct {
	list     *ProjectListService
	projects *ProjectService
}

// NewStatsService creates a new stats service
func NewStatsService(list *ProjectListService, projects *ProjectService) *StatsService {
	return &StatsService{list: list, projects: projects}
}

// StatsRequest represents a request for library statistics
type StatsRequest struct {
	Query         string // Restrict to matching projects (optional)
	IncludeAssets bool   // Load every project's detail to count assets
}

// Execute collects the statistics
func (s *StatsService) Execute(ctx context.Context, req StatsRequest) (*LibraryStats, error) {
	items, err := s.list.FetchAll(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	stats := summarize(items)
	if !req.IncludeAssets || len(items) == 0 {
		return stats, nil
	}

	var (
		mu     sync.Mutex
		counts = make(map[string]int64)
		bytes  = make(map[string]int64)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for _, item := range items {
		g.Go(func() error {
			p, err := s.projects.Get(gctx, item.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, a := range p.Assets {
				counts[string(a.Kind)]++
				bytes[string(a.Kind)] += a.SizeBytes
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.IncludeAssets = true
	stats.AssetsByKind = sortedCounts(counts, byValue)
	stats.BytesByKind = sortedCounts(bytes, byValue)
	for _, n := range bytes {
		stats.TotalBytes += n
	}
	return stats, nil
}

func summarize(items []domain.ProjectSummary) *LibraryStats {
	stats := &LibraryStats{Projects: len(items)}
	tags := make(map[string]int64)
	months := make(map[string]int64)

	for _, p := range items {
		if len(p.Tags) == 0 {
			stats.Untagged++
		}
		for _, t := range p.Tags {
			tags[t.Name]++
		}
		if p.MainImageID != nil {
			stats.WithMainImage++
		}
		if month := monthOf(p.UpdatedAt); month != "" {
			months[month]++
		}
	}

	stats.Tags = sortedCounts(tags, byValue)
	stats.Activity = sortedCounts(months, byLabel)
	return stats
}

// monthOf returns "2006-01" for a server timestamp, or "" when unparseable
func monthOf(ts string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("2006-01")
		}
	}
	if len(ts) >= 7 && ts[4] == '-' {
		return ts[:7]
	}
	return ""
}

type countOrder int

const (
	byValue countOrder = iota
	byLabel
)

func sortedCounts(m map[string]int64, order countOrder) []Count {
	out := make([]Count, 0, len(m))
	for label, v := range m {
		out = append(out, Count{Label: label, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if order == byValue && out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return strings.ToLower(out[i].Label) < strings.ToLower(out[j].Label)
	})
	return out
}
