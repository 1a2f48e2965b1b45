package crawler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

const (
	tuhuEndpoint  = "https://gateway.tuhu.cn/cl"
	tuhuSuccess   = 10000
	tuhuCityPath  = "/cl-base-region-query/region/selectCityList"
	tuhuShopPath  = "/cl-shop-api/shopList/getMainShopList"
	tuhuUserAgent = "Dalvik/2.1.0 (Linux; U; Android 10; M2004J7BC Build/QP1A.190711.020) tuhuAndroid 7.25.0"
)

var tuhuServiceTypes = map[string]string{
	"BY": "保养门店",
	"TR": "轮胎门店",
	"MR": "美容门店",
	"GZ": "改装门店",
}

// Tuhu crawls the shop list of every city for each service type. The city
// list is one flat request; provinces and cities are derived from it.
type Tuhu struct {
	BaseVendor

	mu      sync.Mutex
	regions map[string][]string
}

func newTuhu(env VendorEnv) (Vendor, error) {
	return &Tuhu{BaseVendor: newBaseVendor(env, "tuhu", "途虎养车", SchemaBrand, LevelCity, tuhuEndpoint)}, nil
}

type tuhuCityResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Regions map[string][]struct {
			Province string `json:"province"`
			City     string `json:"city"`
			District string `json:"district"`
		} `json:"regions"`
	} `json:"data"`
}

type tuhuShopResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		ShopList []struct {
			ShopBaseInfo struct {
				CarparName string `json:"carparName"`
				Province   string `json:"province"`
				City       string `json:"city"`
				District   string `json:"district"`
				Address    string `json:"address"`
				Telephone  string `json:"telephone"`
			} `json:"shopBaseInfo"`
			Statistics struct {
				Type string `json:"type"`
			} `json:"statistics"`
		} `json:"shopList"`
		TotalPage flexInt `json:"totalPage"`
	} `json:"data"`
}

func tuhuHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      tuhuUserAgent,
		"Accept-Encoding": "gzip",
		"authorization":   "Bearer null",
		"api_level":       "2",
		"channel":         "Android",
		"version":         "7.25.0",
		"authtype":        "oauth",
	}
}

// Facets returns the service types in crawl order
func (t *Tuhu) Facets() []Facet {
	var facets []Facet
	for _, code := range []string{"BY", "TR", "MR", "GZ"} {
		facets = append(facets, Facet{Key: code, Label: tuhuServiceTypes[code], Params: map[string]string{"serviceType": code}})
	}
	return facets
}

// DedupKey keys shops on their name alone; the same shop is listed under
// several service types.
func (t *Tuhu) DedupKey(rec DealerRecord) string {
	return rec.StoreName
}

func (t *Tuhu) Provinces(ctx context.Context) ([]*GeographyUnit, error) {
	var resp tuhuCityResponse
	if err := t.http.GetJSON(ctx, t.endpoint+tuhuCityPath, tuhuHeaders(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != tuhuSuccess {
		return nil, crawlerrors.NewSoftThrottle(t.name, fmt.Sprintf("city list: code=%d %s", resp.Code, resp.Message))
	}

	regions := make(map[string][]string)
	seen := make(map[string]bool)
	for _, group := range resp.Data.Regions {
		for _, r := range group {
			province, city := strings.TrimSpace(r.Province), strings.TrimSpace(r.City)
			if province == "" || city == "" || seen[province+"/"+city] {
				continue
			}
			seen[province+"/"+city] = true
			regions[province] = append(regions[province], city)
		}
	}

	t.mu.Lock()
	t.regions = regions
	t.mu.Unlock()

	provinces := make([]string, 0, len(regions))
	for p := range regions {
		provinces = append(provinces, p)
	}
	sort.Strings(provinces)

	units := make([]*GeographyUnit, 0, len(provinces))
	for _, p := range provinces {
		units = append(units, &GeographyUnit{ID: p, Name: p, Level: LevelProvince})
	}
	return units, nil
}

// Cities answers from the list fetched by Provinces without a request
func (t *Tuhu) Cities(ctx context.Context, province *GeographyUnit) ([]*GeographyUnit, error) {
	t.mu.Lock()
	cities := append([]string(nil), t.regions[province.Name]...)
	t.mu.Unlock()
	sort.Strings(cities)

	units := make([]*GeographyUnit, 0, len(cities))
	for _, c := range cities {
		units = append(units, &GeographyUnit{ID: c, Name: c, Level: LevelCity, Parent: province})
	}
	return units, nil
}

func (t *Tuhu) FetchDealers(ctx context.Context, q Query) (Page, error) {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	payload := map[string]interface{}{
		"serviceType":       q.Facet.Get("serviceType"),
		"city":              q.Leaf.Name,
		"province":          q.Leaf.NameAt(LevelProvince),
		"latitude":          "",
		"longitude":         "",
		"pageSize":          pageSize,
		"pageIndex":         q.Page,
		"sort":              "default",
		"locationCityName":  "",
		"rankId":            "",
		"locationMatchCity": false,
		"isMatchRegion":     false,
	}

	var resp tuhuShopResponse
	if err := t.http.PostJSON(ctx, t.endpoint+tuhuShopPath, tuhuHeaders(), payload, &resp); err != nil {
		return Page{}, err
	}
	if resp.Code != tuhuSuccess {
		return Page{}, crawlerrors.NewSoftThrottle(t.name, fmt.Sprintf("shop list: code=%d %s", resp.Code, resp.Message))
	}

	records := make([]DealerRecord, 0, len(resp.Data.ShopList))
	for _, shop := range resp.Data.ShopList {
		base := shop.ShopBaseInfo
		serviceType, ok := tuhuServiceTypes[shop.Statistics.Type]
		if !ok {
			serviceType = tuhuServiceTypes["TR"]
		}
		records = append(records, DealerRecord{
			Province:  strings.ReplaceAll(base.Province, "自治区", ""),
			City:      base.City,
			District:  base.District,
			StoreName: base.CarparName,
			Type:      serviceType,
			Address:   base.Address,
			Phone:     base.Telephone,
		})
	}

	totalPages := int(resp.Data.TotalPage)
	if totalPages < 1 {
		totalPages = 1
	}
	return Page{Records: records, HasMore: q.Page < totalPages}, nil
}
