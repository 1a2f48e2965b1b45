package crawler

import (
	"context"
	"strconv"
	"strings"

	"sjsage522/dealerworker/helpers"
	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

const bydEndpoint = "https://site-api.byd.com/domestic-official-api/store"

// BYD lists dealers per city for each sale network and dealer type
type BYD struct {
	BaseVendor
}

func newBYD(env VendorEnv) (Vendor, error) {
	return &BYD{BaseVendor: newBaseVendor(env, "byd", "比亚迪", SchemaDealer, LevelCity, bydEndpoint)}, nil
}

type bydEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type bydProvinceResponse struct {
	bydEnvelope
	Data []struct {
		ID   flexInt `json:"n_province_id"`
		Name string  `json:"provinceName"`
	} `json:"data"`
}

type bydCityResponse struct {
	bydEnvelope
	Data []struct {
		ID   flexInt `json:"n_city_id"`
		Name string  `json:"cityName"`
	} `json:"data"`
}

type bydDealerResponse struct {
	bydEnvelope
	Data []struct {
		ProvinceName  string `json:"provinceName"`
		CityName      string `json:"cityName"`
		DealerName    string `json:"dealerName"`
		DealerAddress string `json:"dealerAddress"`
		DealerTel     string `json:"dealerTel"`
	} `json:"data"`
}

// Facets crosses the two sale networks with the two dealer types
func (b *BYD) Facets() []Facet {
	networks := []struct{ id, label string }{{"2", "王朝"}, {"3", "海洋"}}
	dealerTypes := []struct{ id, label string }{{"0", "售前经销"}, {"1", "售后服务"}}

	var facets []Facet
	for _, n := range networks {
		for _, t := range dealerTypes {
			facets = append(facets, Facet{
				Key:   n.id + "-" + t.id,
				Label: n.label + "/" + t.label,
				Params: map[string]string{
					"salenetwork": n.id,
					"dealerType":  t.id,
					"typeLabel":   t.label,
				},
			})
		}
	}
	return facets
}

func (b *BYD) Provinces(ctx context.Context) ([]*GeographyUnit, error) {
	var resp bydProvinceResponse
	if err := b.http.PostJSON(ctx, b.endpoint+"/province", nil, map[string]string{"dealerType": "0"}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, crawlerrors.NewSoftThrottle(b.name, "province list: "+resp.Message)
	}

	units := make([]*GeographyUnit, 0, len(resp.Data))
	for _, p := range resp.Data {
		id := formatID(p.ID)
		units = append(units, &GeographyUnit{ID: id, Name: helpers.FirstNonEmpty(p.Name, id), Level: LevelProvince})
	}
	return units, nil
}

func (b *BYD) Cities(ctx context.Context, province *GeographyUnit) ([]*GeographyUnit, error) {
	var resp bydCityResponse
	payload := map[string]string{"dealerType": "0", "provinceId": province.ID}
	if err := b.http.PostJSON(ctx, b.endpoint+"/city", nil, payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, crawlerrors.NewSoftThrottle(b.name, "city list: "+resp.Message)
	}

	units := make([]*GeographyUnit, 0, len(resp.Data))
	for _, c := range resp.Data {
		id := formatID(c.ID)
		units = append(units, &GeographyUnit{ID: id, Name: helpers.FirstNonEmpty(c.Name, id), Level: LevelCity, Parent: province})
	}
	return units, nil
}

// FetchDealers asks for up to 1000 dealers of a city in one page. A body
// with success=false is the vendor throttling us.
func (b *BYD) FetchDealers(ctx context.Context, q Query) (Page, error) {
	payload := map[string]interface{}{
		"dealerKey":    "",
		"provinceId":   "",
		"cityId":       q.Leaf.ID,
		"provinceName": "",
		"cityName":     "",
		"longtitude":   114.174328,
		"latitude":     22.316554,
		"pageNum":      0,
		"numPerPage":   1000,
		"dealerType":   q.Facet.Get("dealerType"),
	}
	headers := map[string]string{"salenetwork": q.Facet.Get("salenetwork")}

	var resp bydDealerResponse
	if err := b.http.PostJSON(ctx, b.endpoint+"/list", headers, payload, &resp); err != nil {
		return Page{}, err
	}
	if !resp.Success {
		return Page{}, crawlerrors.NewSoftThrottle(b.name, "dealer list: "+resp.Message)
	}

	records := make([]DealerRecord, 0, len(resp.Data))
	for _, d := range resp.Data {
		records = append(records, DealerRecord{
			Province:  d.ProvinceName,
			City:      d.CityName,
			StoreName: d.DealerName,
			Type:      q.Facet.Get("typeLabel"),
			Type2:     bydType2(d.DealerName),
			Address:   d.DealerAddress,
			Phone:     d.DealerTel,
		})
	}
	return Page{Records: records}, nil
}

var (
	bydStoreKinds  = []string{"4S", "卫星", "城展", "服务"}
	bydStoreExtras = []string{"商超店", "城市展厅", "钣喷中心"}
)

// bydType2 derives the secondary type from the dealer name: every store
// kind found in a name containing 店 is concatenated and suffixed with 店,
// then the extra formats are appended.
func bydType2(name string) string {
	var b strings.Builder
	if strings.Contains(name, "店") {
		for _, kind := range bydStoreKinds {
			if strings.Contains(name, kind) {
				b.WriteString(kind)
			}
		}
		if b.Len() > 0 {
			b.WriteString("店")
		}
	}
	for _, extra := range bydStoreExtras {
		if strings.Contains(name, extra) {
			b.WriteString(extra)
		}
	}
	return b.String()
}

func formatID(id flexInt) string {
	return strconv.Itoa(int(id))
}
