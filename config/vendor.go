package config

import "time"

// Output encodings
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-bom"
	EncodingGBK     = "gbk"
)

// Output quoting styles
const (
	QuotingMinimal = "minimal"
	QuotingAll     = "all"
)

func validEncoding(e string) bool {
	return e == EncodingUTF8 || e == EncodingUTF8BOM || e == EncodingGBK
}

func validQuoting(q string) bool {
	return q == QuotingMinimal || q == QuotingAll
}

// VendorSettings are the effective knobs of a single vendor crawl
type VendorSettings struct {
	PaceBase   time.Duration
	PaceJitter time.Duration
	Encoding   string
	Quoting    string
	FlushEvery int
	Dedup      bool
	Resume     bool
	MaxPages   int
	PageSize   int
	Endpoint   string

	// Unpaced vendors send a request or two per crawl and skip the
	// global pace
	Unpaced bool
}

// merge overlays the non-zero fields of d. Dedup and Resume only switch on;
// the YAML override can switch them off again.
func (s *VendorSettings) merge(d VendorSettings) {
	if d.Unpaced {
		s.PaceBase, s.PaceJitter = 0, 0
	}
	if d.PaceBase > 0 {
		s.PaceBase = d.PaceBase
	}
	if d.PaceJitter > 0 {
		s.PaceJitter = d.PaceJitter
	}
	if d.Encoding != "" {
		s.Encoding = d.Encoding
	}
	if d.Quoting != "" {
		s.Quoting = d.Quoting
	}
	if d.FlushEvery > 0 {
		s.FlushEvery = d.FlushEvery
	}
	if d.Dedup {
		s.Dedup = true
	}
	if d.Resume {
		s.Resume = true
	}
	if d.MaxPages > 0 {
		s.MaxPages = d.MaxPages
	}
	if d.PageSize > 0 {
		s.PageSize = d.PageSize
	}
	if d.Endpoint != "" {
		s.Endpoint = d.Endpoint
	}
}

// VendorOverride is the YAML shape of config/vendors/<name>.yaml
type VendorOverride struct {
	Name         string `yaml:"name"`
	PaceBaseMS   *int   `yaml:"pace_base_ms"`
	PaceJitterMS *int   `yaml:"pace_jitter_ms"`
	Encoding     string `yaml:"encoding"`
	Quoting      string `yaml:"quoting"`
	FlushEvery   int    `yaml:"flush_every"`
	Dedup        *bool  `yaml:"dedup"`
	Resume       *bool  `yaml:"resume"`
	MaxPages     int    `yaml:"max_pages"`
	PageSize     int    `yaml:"page_size"`
	Endpoint     string `yaml:"endpoint"`
}

func (o *VendorOverride) apply(s *VendorSettings) {
	s.merge(VendorSettings{
		Encoding:   o.Encoding,
		Quoting:    o.Quoting,
		FlushEvery: o.FlushEvery,
		MaxPages:   o.MaxPages,
		PageSize:   o.PageSize,
		Endpoint:   o.Endpoint,
	})
	// a zero pace is a valid override
	if o.PaceBaseMS != nil {
		s.PaceBase = time.Duration(*o.PaceBaseMS) * time.Millisecond
	}
	if o.PaceJitterMS != nil {
		s.PaceJitter = time.Duration(*o.PaceJitterMS) * time.Millisecond
	}
	if o.Dedup != nil {
		s.Dedup = *o.Dedup
	}
	if o.Resume != nil {
		s.Resume = *o.Resume
	}
}
