package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	crawlerrors "sjsage522/dealerworker/pkg/errors"
	"sjsage522/dealerworker/services/cache"
)

// MockCacheService is a cache whose failures can be switched on
type MockCacheService struct {
	*cache.MemoryCache
	fail bool
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{MemoryCache: cache.NewMemoryCache()}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if m.fail {
		return nil, fmt.Errorf("cache down")
	}
	return m.MemoryCache.Get(key)
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	if m.fail {
		return fmt.Errorf("cache down")
	}
	return m.MemoryCache.Set(key, value, expiration)
}

// memorySink collects rows in memory, moving them to rows once batch rows
// are pending (default 1)
type memorySink struct {
	mu       sync.Mutex
	rows     [][]string
	pending  [][]string
	batch    int
	opened   bool
	resumed  bool
	closed   bool
	flushes  int
	openErr  error
	writeErr error
}

func (s *memorySink) Open(resume bool) error {
	s.opened, s.resumed = true, resume
	return s.openErr
}

func (s *memorySink) Write(row []string) error {
	s.mu.Lock()
	if s.writeErr != nil {
		s.mu.Unlock()
		return s.writeErr
	}
	s.pending = append(s.pending, row)
	full := len(s.pending) >= s.batch
	s.mu.Unlock()

	if full {
		return s.Flush()
	}
	return nil
}

func (s *memorySink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, s.pending...)
	s.pending = nil
	s.flushes++
	return nil
}

func (s *memorySink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *memorySink) Close() error {
	s.closed = true
	return s.Flush()
}

// stubVendor serves a fixed geography tree. Every leaf has pages[leafName]
// pages (default 1) of one record each.
type stubVendor struct {
	name   string
	depth  Level
	facets []Facet

	// tree maps a parent name ("" for the root) to its children
	tree  map[string][]string
	pages map[string]int

	// records overrides the generated records of a leaf's first page
	records map[string][]DealerRecord

	// blank pages, keyed "leaf/page", come back empty but still report more
	blank map[string]bool

	// failing makes a level or fetch call fail with err; keyed by the
	// parent name for level calls and "leaf/page" for fetches
	failing map[string]error

	mu    sync.Mutex
	calls []Query
	level int
}

func newStubVendor(depth Level) *stubVendor {
	return &stubVendor{
		name:    "stub",
		depth:   depth,
		tree:    make(map[string][]string),
		pages:   make(map[string]int),
		records: make(map[string][]DealerRecord),
		blank:   make(map[string]bool),
		failing: make(map[string]error),
	}
}

func (v *stubVendor) Name() string    { return v.name }
func (v *stubVendor) Brand() string   { return "测试" }
func (v *stubVendor) Schema() Schema  { return SchemaDealer }
func (v *stubVendor) Depth() Level    { return v.depth }
func (v *stubVendor) Facets() []Facet { return v.facets }

func (v *stubVendor) children(parent *GeographyUnit, level Level) ([]*GeographyUnit, error) {
	v.mu.Lock()
	v.level++
	v.mu.Unlock()

	key := ""
	if parent != nil {
		key = parent.Name
	}
	if err, ok := v.failing[key]; ok {
		return nil, err
	}

	var units []*GeographyUnit
	for _, name := range v.tree[key] {
		units = append(units, &GeographyUnit{ID: name, Name: name, Level: level})
	}
	return units, nil
}

func (v *stubVendor) Provinces(ctx context.Context) ([]*GeographyUnit, error) {
	return v.children(nil, LevelProvince)
}

func (v *stubVendor) Cities(ctx context.Context, p *GeographyUnit) ([]*GeographyUnit, error) {
	return v.children(p, LevelCity)
}

func (v *stubVendor) Districts(ctx context.Context, c *GeographyUnit) ([]*GeographyUnit, error) {
	return v.children(c, LevelDistrict)
}

func (v *stubVendor) FetchDealers(ctx context.Context, q Query) (Page, error) {
	v.mu.Lock()
	v.calls = append(v.calls, q)
	v.mu.Unlock()

	if err, ok := v.failing[fmt.Sprintf("%s/%d", q.Leaf.Name, q.Page)]; ok {
		return Page{}, err
	}

	if v.blank[fmt.Sprintf("%s/%d", q.Leaf.Name, q.Page)] {
		return Page{HasMore: true}, nil
	}

	total := v.pages[q.Leaf.Name]
	if total == 0 {
		total = 1
	}

	recs, ok := v.records[q.Leaf.Name]
	if !ok || q.Page > 1 {
		recs = []DealerRecord{{
			Province:  q.Leaf.NameAt(LevelProvince),
			City:      q.Leaf.NameAt(LevelCity),
			District:  q.Leaf.NameAt(LevelDistrict),
			StoreName: fmt.Sprintf("%s-%s-%d", strings.Join(q.Leaf.Path(), ""), q.Facet.Key, q.Page),
			Address:   strings.Join(q.Leaf.Path(), ""),
		}}
	}
	return Page{Records: recs, HasMore: q.Page < total}, nil
}

func (v *stubVendor) fetchCalls() []Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Query(nil), v.calls...)
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func testRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}.WithSleep(noSleep)
}

var errServer = crawlerrors.NewHTTPStatus("stub", 500, "http://stub")
