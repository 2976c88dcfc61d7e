package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

// DefaultPageSize is the number of projects requested per page
const DefaultPageSize = 50

// ProjectListService reads the project listing one page at a time
type ProjectListService struct {
	api      ports.ProjectAPI
	cache    *QueryCache
	pageSize int
}

// NewProjectListService creates a new list service
func NewProjectListService(api ports.ProjectAPI, cache *QueryCache, pageSize int) *ProjectListService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ProjectListService{
		api:      api,
		cache:    cache,
		pageSize: pageSize,
	}
}

// ListRequest represents a request for one page of projects
type ListRequest struct {
	Limit  int     // Page size (default from config)
	Cursor *string // Continue after this cursor (optional)
	Query  string  // Free-text search (optional)
}

// Execute fetches one page
func (s *ProjectListService) Execute(ctx context.Context, req ListRequest) (*domain.ProjectPage, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.pageSize
	}
	query := strings.TrimSpace(req.Query)

	page, err := Fetch(ctx, s.cache, ProjectsKey(limit, query, req.Cursor), func(ctx context.Context) (*domain.ProjectPage, error) {
		return s.api.ListProjects(ctx, ports.ListProjectsParams{
			Limit:  limit,
			Cursor: req.Cursor,
			Query:  query,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return page, nil
}

// NewPaginator starts an accumulating listing for the given query
func (s *ProjectListService) NewPaginator(query string) *Paginator {
	return NewPaginator(s.Execute, s.pageSize, query)
}

// FetchAll walks every page of the listing
func (s *ProjectListService) FetchAll(ctx context.Context, query string) ([]domain.ProjectSummary, error) {
	p := s.NewPaginator(query)
	for p.HasNext() {
		if _, err := p.FetchNext(ctx); err != nil {
			return nil, err
		}
	}
	return p.Items(), nil
}

// PageFetcher loads one page of projects
type PageFetcher func(ctx context.Context, req ListRequest) (*domain.ProjectPage, error)

// PageTicket identifies an in-flight page request. The generation ties it to
// the query it was issued for; completing a ticket from an older generation
// is a no-op.
type PageTicket struct {
	Generation uint64
	Request    ListRequest
}

// Paginator accumulates cursor pages into one ordered list without
// duplicates. Only one page is fetched at a time, and nothing is fetched
// once the listing is exhausted.
type Paginator struct {
	mu        sync.Mutex
	fetch     PageFetcher
	limit     int
	query     string
	gen       uint64
	items     []domain.ProjectSummary
	seen      map[string]bool
	cursor    *string
	exhausted bool
	inFlight  bool
	err       error
}

// NewPaginator creates a paginator over fetch
func NewPaginator(fetch PageFetcher, limit int, query string) *Paginator {
	return &Paginator{
		fetch: fetch,
		limit: limit,
		query: strings.TrimSpace(query),
		seen:  make(map[string]bool),
	}
}

// SetQuery restarts the listing from the first page for a new query.
// Pages still in flight for the old query will be ignored.
func (p *Paginator) SetQuery(query string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.query = strings.TrimSpace(query)
	p.resetLocked()
}

// Reset restarts the listing for the current query
func (p *Paginator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Paginator) resetLocked() {
	p.gen++
	p.items = nil
	p.seen = make(map[string]bool)
	p.cursor = nil
	p.exhausted = false
	p.inFlight = false
	p.err = nil
}

// Begin reserves the next page fetch. It returns false when the listing is
// exhausted or a fetch is already running.
func (p *Paginator) Begin() (PageTicket, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exhausted || p.inFlight {
		return PageTicket{}, false
	}
	p.inFlight = true
	p.err = nil

	return PageTicket{
		Generation: p.gen,
		Request: ListRequest{
			Limit:  p.limit,
			Cursor: p.cursor,
			Query:  p.query,
		},
	}, true
}

// Complete applies the outcome of a fetch started with Begin. It returns
// false when the ticket belongs to an older query and was discarded.
func (p *Paginator) Complete(ticket PageTicket, page *domain.ProjectPage, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ticket.Generation != p.gen {
		return false
	}
	p.inFlight = false

	if err != nil {
		p.err = err
		return true
	}

	for _, item := range page.Items {
		if p.seen[item.ID] {
			continue
		}
		p.seen[item.ID] = true
		p.items = append(p.items, item)
	}

	// The server hands out a cursor for any non-empty page, so an empty
	// page is also the end.
	if page.NextCursor == nil || len(page.Items) == 0 {
		p.exhausted = true
		p.cursor = nil
	} else {
		next := *page.NextCursor
		p.cursor = &next
	}
	return true
}

// Run executes a ticket with the paginator's fetcher
func (p *Paginator) Run(ctx context.Context, ticket PageTicket) (*domain.ProjectPage, error) {
	return p.fetch(ctx, ticket.Request)
}

// FetchNext fetches and applies the next page synchronously. It reports
// whether a fetch happened.
func (p *Paginator) FetchNext(ctx context.Context) (bool, error) {
	ticket, ok := p.Begin()
	if !ok {
		return false, nil
	}
	page, err := p.Run(ctx, ticket)
	p.Complete(ticket, page, err)
	return true, err
}

// Items returns a copy of everything accumulated so far
func (p *Paginator) Items() []domain.ProjectSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProjectSummary(nil), p.items...)
}

// Len returns the number of accumulated items
func (p *Paginator) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// HasNext reports whether another page may exist
func (p *Paginator) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exhausted
}

// Loading reports whether a fetch is in flight
func (p *Paginator) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Err returns the error of the last fetch, if it failed
func (p *Paginator) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Query returns the current search text
func (p *Paginator) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Generation returns the current query generation
func (p *Paginator) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}
