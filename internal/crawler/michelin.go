package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

const michelinEndpoint = "https://www.michelin.com.cn/auto/dealer-locator/assets/js/city_az-dealer"

var michelinShopTypes = map[string]string{
	"TYREPLUS": "驰加",
	"MCR":      "非驰加",
	"MPC":      "MPC",
}

// Michelin publishes one JSON file per pinyin initial of the city name.
// The initials stand in for provinces; letters without a file are skipped.
type Michelin struct {
	BaseVendor
}

func newMichelin(env VendorEnv) (Vendor, error) {
	return &Michelin{BaseVendor: newBaseVendor(env, "michelin", "米其林", SchemaCity, LevelProvince, michelinEndpoint)}, nil
}

type michelinStore struct {
	Type    string `json:"ty"`
	Name    string `json:"na"`
	Address string `json:"ad"`
	Phone   string `json:"ph"`
}

func (m *Michelin) Provinces(ctx context.Context) ([]*GeographyUnit, error) {
	units := make([]*GeographyUnit, 0, 26)
	for c := 'a'; c <= 'z'; c++ {
		letter := string(c)
		units = append(units, &GeographyUnit{ID: letter, Name: letter, Level: LevelProvince})
	}
	return units, nil
}

func (m *Michelin) FetchDealers(ctx context.Context, q Query) (Page, error) {
	url := fmt.Sprintf("%s/%s.json", m.endpoint, q.Leaf.ID)
	headers := map[string]string{
		"Accept":  "application/json",
		"Referer": "https://www.michelin.com.cn/auto/dealer-locator/",
	}

	// city -> district -> stores
	var data map[string]map[string][]michelinStore
	if err := m.http.GetJSON(ctx, url, headers, &data); err != nil {
		var ce *crawlerrors.CrawlerError
		if errors.As(err, &ce) && ce.StatusCode == http.StatusNotFound {
			return Page{}, nil
		}
		return Page{}, err
	}

	var records []DealerRecord
	for _, city := range sortedKeys(data) {
		districts := data[city]
		for _, district := range sortedKeys(districts) {
			for _, s := range districts[district] {
				shopType, ok := michelinShopTypes[s.Type]
				if !ok {
					shopType = s.Type
				}
				records = append(records, DealerRecord{
					Province:  m.provinceOf("", city),
					City:      city,
					District:  district,
					StoreName: s.Name,
					Type:      shopType,
					Address:   s.Address,
					Phone:     s.Phone,
				})
			}
		}
	}
	return Page{Records: records}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
