package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sjsage522/dealerworker/helpers"
	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

const hankookEndpoint = "https://www.hankooktire.com/wsvc/api/find-store.getStoreList.do"

// Hankook pages through one nationwide store search. Stores carry only a
// free-text address, so the province, city and district are parsed from it.
type Hankook struct {
	BaseVendor
}

func newHankook(env VendorEnv) (Vendor, error) {
	return &Hankook{BaseVendor: newBaseVendor(env, "hankook", "韩泰轮胎", SchemaTire, LevelProvince, hankookEndpoint)}, nil
}

type hankookResponse struct {
	ResultCode string `json:"resultCode"`
	Message    string `json:"message"`
	Data       struct {
		ResultList []struct {
			Addr       string `json:"ADDR"`
			DealName   string `json:"DEAL_NM"`
			DealType1  string `json:"DEAL_TYPE1"`
			DealType2  string `json:"DEAL_TYPE2"`
			TelOtherNo string `json:"TEL_OTHER_NO"`
			Tel1No     string `json:"TEL_1_NO"`
			Tel2No     string `json:"TEL_2_NO"`
			Tel3No     string `json:"TEL_3_NO"`
		} `json:"ResultList"`
		Pg struct {
			EndPage flexInt `json:"endPage"`
		} `json:"pg"`
	} `json:"data"`
}

func (h *Hankook) Provinces(ctx context.Context) ([]*GeographyUnit, error) {
	return nationwide(), nil
}

func (h *Hankook) FetchDealers(ctx context.Context, q Query) (Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	payload := map[string]string{
		"siteCd":     "CN-ZH",
		"query":      "",
		"dealType2":  "",
		"dealType1":  "",
		"distance":   "20",
		"isLocBased": "false",
		"lat":        "31.30073",
		"lng":        "121.4832",
		"cntlCd":     "",
		"page":       strconv.Itoa(page),
	}
	headers := map[string]string{
		"Content-Type": "application/json;charset=UTF-8",
		"Accept":       "application/json, text/plain, */*",
		"Origin":       "https://www.hankooktire.com",
		"Referer":      "https://www.hankooktire.com/cn-zh/find-a-store/find-a-store.html",
	}

	var resp hankookResponse
	if err := h.http.PostJSON(ctx, h.endpoint, headers, payload, &resp); err != nil {
		return Page{}, err
	}
	if resp.ResultCode != "0000" {
		return Page{}, crawlerrors.NewSoftThrottle(h.name, fmt.Sprintf("page %d: resultCode=%s %s", page, resp.ResultCode, resp.Message))
	}

	records := make([]DealerRecord, 0, len(resp.Data.ResultList))
	for _, item := range resp.Data.ResultList {
		addr := strings.TrimSpace(item.Addr)
		parts := ParseAddress(addr)
		records = append(records, DealerRecord{
			Province:  h.provinceOf(parts.Province, parts.City),
			City:      parts.City,
			District:  parts.District,
			StoreName: item.DealName,
			Type:      item.DealType1,
			Type2:     item.DealType2,
			Address:   addr,
			Phone:     helpers.FirstNonEmpty(item.TelOtherNo, item.Tel1No, item.Tel2No, item.Tel3No),
		})
	}

	endPage := int(resp.Data.Pg.EndPage)
	if endPage < 1 {
		endPage = 1
	}
	return Page{Records: records, HasMore: page < endPage}, nil
}
