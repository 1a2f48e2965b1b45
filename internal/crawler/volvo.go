package crawler

import (
	"context"
	"fmt"
	"sort"

	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

const volvoEndpoint = "https://campaigns.volvocars.com.cn/campaign/statistic/api/web/index.php/v1/apiservice/dealers/volvo-rdm-new.php"

// Volvo serves every dealer in one GET, grouped by city
type Volvo struct {
	BaseVendor
}

func newVolvo(env VendorEnv) (Vendor, error) {
	return &Volvo{BaseVendor: newBaseVendor(env, "volvo", "沃尔沃", SchemaDealer, LevelProvince, volvoEndpoint)}, nil
}

type volvoDealer struct {
	Province   string   `json:"Province"`
	City       string   `json:"City"`
	DealerName string   `json:"DealerName"`
	Address    string   `json:"Address"`
	SaleTel    string   `json:"SaleTel"`
	Category   []string `json:"Category"`
}

type volvoResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		City map[string][]volvoDealer `json:"city"`
	} `json:"data"`
}

func (v *Volvo) Provinces(ctx context.Context) ([]*GeographyUnit, error) {
	return nationwide(), nil
}

func (v *Volvo) FetchDealers(ctx context.Context, q Query) (Page, error) {
	var resp volvoResponse
	if err := v.http.GetJSON(ctx, v.endpoint, nil, &resp); err != nil {
		return Page{}, err
	}
	if resp.Code != 0 {
		return Page{}, crawlerrors.NewSoftThrottle(v.name, fmt.Sprintf("code=%d %s", resp.Code, resp.Message))
	}

	// Map order is random; sort for a stable output
	cities := make([]string, 0, len(resp.Data.City))
	for c := range resp.Data.City {
		cities = append(cities, c)
	}
	sort.Strings(cities)

	var records []DealerRecord
	for _, c := range cities {
		for _, d := range resp.Data.City[c] {
			rec := DealerRecord{
				Province:  d.Province,
				City:      d.City,
				StoreName: d.DealerName,
				Address:   d.Address,
				Phone:     d.SaleTel,
			}
			if len(d.Category) > 0 {
				rec.Type = d.Category[0]
			}
			if len(d.Category) > 1 {
				rec.Type2 = d.Category[1]
			}
			records = append(records, rec)
		}
	}
	return Page{Records: records}, nil
}
