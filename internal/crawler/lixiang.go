package crawler

import "context"

const lixiangEndpoint = "https://api-web.lixiang.com/saos-store-web/tur_store/v1-0/service-centers?types=RETAIL%2CDELIVER%2CAFTERSALE%2CSPRAY%2CTEMPORARY_EXHIBITION%2CTEMPORARY_AFTERSALE_SUPPORT&sortType=CITY&storeEffectiveStatus="

// Lixiang serves every retail and service center in one GET
type Lixiang struct {
	BaseVendor
}

func newLixiang(env VendorEnv) (Vendor, error) {
	return &Lixiang{BaseVendor: newBaseVendor(env, "lixiang", "理想", SchemaBrand, LevelProvince, lixiangEndpoint)}, nil
}

type lixiangResponse struct {
	Data []struct {
		ProvinceName string `json:"provinceName"`
		CityName     string `json:"cityName"`
		CountyName   string `json:"countyName"`
		Name         string `json:"name"`
		Type         string `json:"type"`
		Address      string `json:"address"`
		Telephone    string `json:"telephone"`
	} `json:"data"`
}

func (l *Lixiang) Provinces(ctx context.Context) ([]*GeographyUnit, error) {
	return nationwide(), nil
}

func (l *Lixiang) FetchDealers(ctx context.Context, q Query) (Page, error) {
	var resp lixiangResponse
	if err := l.http.GetJSON(ctx, l.endpoint, nil, &resp); err != nil {
		return Page{}, err
	}

	records := make([]DealerRecord, 0, len(resp.Data))
	for _, item := range resp.Data {
		records = append(records, DealerRecord{
			Province:  item.ProvinceName,
			City:      item.CityName,
			District:  item.CountyName,
			StoreName: item.Name,
			Type:      item.Type,
			Address:   item.Address,
			Phone:     item.Telephone,
		})
	}
	return Page{Records: records}, nil
}
