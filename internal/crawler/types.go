package crawler

import "context"

// Level is the depth of a geography unit
type Level int

const (
	LevelProvince Level = iota + 1
	LevelCity
	LevelDistrict
)

func (l Level) String() string {
	switch l {
	case LevelProvince:
		return "province"
	case LevelCity:
		return "city"
	case LevelDistrict:
		return "district"
	default:
		return "unknown"
	}
}

// GeographyUnit is a node of a vendor's province/city/district tree.
// Parent is for lookups only; a unit never owns its parent.
type GeographyUnit struct {
	ID     string
	Name   string
	Level  Level
	Parent *GeographyUnit
	Extra  map[string]string
}

// Ancestor returns the unit itself or the closest parent at level, or nil
func (u *GeographyUnit) Ancestor(level Level) *GeographyUnit {
	for n := u; n != nil; n = n.Parent {
		if n.Level == level {
			return n
		}
	}
	return nil
}

// NameAt returns the name of the ancestor at level, or ""
func (u *GeographyUnit) NameAt(level Level) string {
	if a := u.Ancestor(level); a != nil {
		return a.Name
	}
	return ""
}

// Get returns an Extra value, or ""
func (u *GeographyUnit) Get(key string) string {
	if u.Extra == nil {
		return ""
	}
	return u.Extra[key]
}

// Path returns the names from the root down to the unit
func (u *GeographyUnit) Path() []string {
	var names []string
	for n := u; n != nil; n = n.Parent {
		names = append([]string{n.Name}, names...)
	}
	return names
}

// DealerRecord is one normalized outlet. Missing values are empty strings.
type DealerRecord struct {
	Brand      string `json:"brand"`
	Province   string `json:"province"`
	ProvinceEN string `json:"province_en"`
	City       string `json:"city"`
	CityEN     string `json:"city_en"`
	District   string `json:"district"`
	StoreName  string `json:"store_name"`
	Type       string `json:"type"`
	Type2      string `json:"type2"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Remarks    string `json:"remarks"`
}

// Facet is a non-geographic crawl dimension such as a sale network or a
// service type. Vendors without facets crawl one implicit empty facet.
type Facet struct {
	Key    string
	Label  string
	Params map[string]string
}

// Get returns a facet parameter, or ""
func (f Facet) Get(key string) string {
	if f.Params == nil {
		return ""
	}
	return f.Params[key]
}

// Query addresses one page of dealers
type Query struct {
	Leaf     *GeographyUnit
	Facet    Facet
	Page     int
	PageSize int
}

// Page is one page of dealers. HasMore is false on the last page.
type Page struct {
	Records []DealerRecord
	HasMore bool
}

// Vendor is the per-brand part of a crawl: how to enumerate its geography
// tree and how to fetch and map one page of dealers.
type Vendor interface {
	// Name is the registry key and output file name
	Name() string

	// Brand is the brand column value
	Brand() string

	// Schema selects the output columns
	Schema() Schema

	// Depth is the level of the leaf units
	Depth() Level

	// Facets returns the crawl dimensions outside the geography tree
	Facets() []Facet

	Provinces(ctx context.Context) ([]*GeographyUnit, error)
	Cities(ctx context.Context, province *GeographyUnit) ([]*GeographyUnit, error)
	Districts(ctx context.Context, city *GeographyUnit) ([]*GeographyUnit, error)

	// FetchDealers fetches one page of dealers for a leaf unit
	FetchDealers(ctx context.Context, q Query) (Page, error)
}

// DedupKeyer lets a vendor replace the (store name, address) dedup key
type DedupKeyer interface {
	DedupKey(rec DealerRecord) string
}
