package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CrawlProgress is the resume cursor of one vendor crawl. FacetIndex and
// LeafIndex point at the next unit of work; Page is the next page of that
// leaf.
type CrawlProgress struct {
	Vendor     string    `json:"vendor"`
	RunID      string    `json:"run_id"`
	FacetIndex int       `json:"facet_index"`
	LeafIndex  int       `json:"leaf_index"`
	Page       int       `json:"page"`
	Records    int       `json:"records"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store keeps one progress file per vendor under a directory
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Path returns the progress file of a vendor
func (s *Store) Path(vendor string) string {
	return filepath.Join(s.dir, vendor+".progress.json")
}

// Load returns the saved progress of a vendor, or nil when there is none
func (s *Store) Load(vendor string) (*CrawlProgress, error) {
	data, err := os.ReadFile(s.Path(vendor))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var p CrawlProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path(vendor), err)
	}
	if p.Vendor != vendor {
		return nil, fmt.Errorf("progress file %s belongs to %q", s.Path(vendor), p.Vendor)
	}
	return &p, nil
}

// Save writes p through a temporary file and a rename, so a crash never
// leaves a truncated cursor behind.
func (s *Store) Save(p *CrawlProgress) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	p.UpdatedAt = s.now().UTC()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.Path(p.Vendor) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path(p.Vendor))
}

// Clear removes the progress file of a vendor. A missing file is not an error.
func (s *Store) Clear(vendor string) error {
	err := os.Remove(s.Path(vendor))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
