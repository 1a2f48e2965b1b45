package crawler

import (
	"context"
	"strings"
)

const xiaopengEndpoint = "https://www.xiaopeng.com/api/store/queryAll"

// Xiaopeng serves every store in one POST
type Xiaopeng struct {
	BaseVendor
}

func newXiaopeng(env VendorEnv) (Vendor, error) {
	return &Xiaopeng{BaseVendor: newBaseVendor(env, "xiaopeng", "小鹏汽车", SchemaBrand, LevelProvince, xiaopengEndpoint)}, nil
}

type xiaopengResponse struct {
	Data []struct {
		ProvinceName  string `json:"provinceName"`
		CityName      string `json:"cityName"`
		DistrictName  string `json:"districtName"`
		StoreName     string `json:"storeName"`
		StoreTypeName string `json:"storeTypeName"`
		Address       string `json:"address"`
		Mobile        string `json:"mobile"`
	} `json:"data"`
}

func (x *Xiaopeng) Provinces(ctx context.Context) ([]*GeographyUnit, error) {
	return nationwide(), nil
}

func (x *Xiaopeng) FetchDealers(ctx context.Context, q Query) (Page, error) {
	headers := map[string]string{"Referer": "https://www.xiaopeng.com/pengmetta.html?forcePlat=h5"}

	var resp xiaopengResponse
	if err := x.http.PostJSON(ctx, x.endpoint, headers, nil, &resp); err != nil {
		return Page{}, err
	}

	records := make([]DealerRecord, 0, len(resp.Data))
	for _, s := range resp.Data {
		records = append(records, DealerRecord{
			Province:  s.ProvinceName,
			City:      s.CityName,
			District:  s.DistrictName,
			StoreName: s.StoreName,
			Type:      s.StoreTypeName,
			Address:   s.Address,
			Phone:     strings.ReplaceAll(s.Mobile, " ", ""),
		})
	}
	return Page{Records: records}, nil
}
