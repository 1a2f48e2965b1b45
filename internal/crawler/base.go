package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"sjsage522/dealerworker/helpers"
	"sjsage522/dealerworker/internal/translator"
)

// BaseVendor provides common functionality for all vendors
type BaseVendor struct {
	name       string
	brand      string
	schema     Schema
	depth      Level
	endpoint   string
	http       *helpers.HTTPClient
	translator *translator.LocationTranslator
}

func newBaseVendor(env VendorEnv, name, brand string, schema Schema, depth Level, defaultEndpoint string) BaseVendor {
	endpoint := defaultEndpoint
	if env.Settings.Endpoint != "" {
		endpoint = env.Settings.Endpoint
	}
	return BaseVendor{
		name:       name,
		brand:      brand,
		schema:     schema,
		depth:      depth,
		endpoint:   strings.TrimRight(endpoint, "/"),
		http:       env.HTTP,
		translator: env.Translator,
	}
}

// Name returns the vendor's registry name
func (b *BaseVendor) Name() string { return b.name }

// Brand returns the brand column value
func (b *BaseVendor) Brand() string { return b.brand }

// Schema returns the output layout
func (b *BaseVendor) Schema() Schema { return b.schema }

// Depth returns the leaf level
func (b *BaseVendor) Depth() Level { return b.depth }

// Facets returns no facets
func (b *BaseVendor) Facets() []Facet { return nil }

// Cities is unused by province-level vendors
func (b *BaseVendor) Cities(ctx context.Context, province *GeographyUnit) ([]*GeographyUnit, error) {
	return nil, nil
}

// Districts is unused by vendors that stop at the city level
func (b *BaseVendor) Districts(ctx context.Context, city *GeographyUnit) ([]*GeographyUnit, error) {
	return nil, nil
}

// nationwide is the single synthetic leaf of vendors serving one flat list
func nationwide() []*GeographyUnit {
	return []*GeographyUnit{{ID: "all", Name: "全国", Level: LevelProvince}}
}

// provinceOf fills a missing province from the city
func (b *BaseVendor) provinceOf(province, city string) string {
	if province != "" || b.translator == nil {
		return province
	}
	return b.translator.ProvinceOfCity(city)
}

// flexInt decodes a JSON number or a numeric string
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		var fl float64
		if jsonErr := json.Unmarshal([]byte(s), &fl); jsonErr != nil {
			return fmt.Errorf("flexInt: %q is not a number", s)
		}
		n = int(fl)
	}
	*f = flexInt(n)
	return nil
}
