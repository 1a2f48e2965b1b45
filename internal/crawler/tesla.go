package crawler

import (
	"context"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

const (
	teslaEndpoint      = "https://www.tesla.cn/findus/list"
	teslaProvinceLinks = "div.list-container ul li a"
	teslaStoreCards    = "address.vcard"
	teslaWaitTimeout   = 20 * time.Second
	teslaDefaultType   = "综合服务"
)

// Tesla scrapes the store finder pages, one page per province. The pages
// are rendered client side, so by default they are loaded in a browser; the
// http mode reads the server HTML directly.
type Tesla struct {
	BaseVendor

	browser Browser
}

func newTesla(env VendorEnv) (Vendor, error) {
	t := &Tesla{BaseVendor: newBaseVendor(env, "tesla", "特斯拉", SchemaBrand, LevelProvince, teslaEndpoint)}
	useBrowser := env.Config == nil || env.Config.TeslaMode != "http"
	if useBrowser && env.NewBrowser != nil {
		t.browser = env.NewBrowser()
	}
	return t, nil
}

// DedupKey keys stores on province, name and address
func (t *Tesla) DedupKey(rec DealerRecord) string {
	return rec.Province + "\x1f" + rec.StoreName + "\x1f" + rec.Address
}

// Close shuts the browser down
func (t *Tesla) Close() error {
	if t.browser == nil {
		return nil
	}
	return t.browser.Close()
}

func (t *Tesla) Provinces(ctx context.Context) ([]*GeographyUnit, error) {
	doc, err := t.load(ctx, t.endpoint, teslaProvinceLinks)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(t.endpoint)
	if err != nil {
		return nil, crawlerrors.NewConfiguration("tesla endpoint", err)
	}

	var units []*GeographyUnit
	doc.Find(teslaProvinceLinks).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}

		// "Tesla 体验店 - 四川省" -> "四川省"
		text := strings.TrimSpace(s.Text())
		if i := strings.LastIndex(text, " - "); i >= 0 {
			text = strings.TrimSpace(text[i+3:])
		}

		link := base.ResolveReference(ref).String()
		units = append(units, &GeographyUnit{
			ID:    link,
			Name:  text,
			Level: LevelProvince,
			Extra: map[string]string{"url": link},
		})
	})
	return units, nil
}

func (t *Tesla) FetchDealers(ctx context.Context, q Query) (Page, error) {
	doc, err := t.load(ctx, q.Leaf.Get("url"), teslaStoreCards)
	if err != nil {
		return Page{}, err
	}

	province := q.Leaf.Name
	var records []DealerRecord
	doc.Find(teslaStoreCards).Each(func(_ int, card *goquery.Selection) {
		records = append(records, parseTeslaCard(card, province))
	})
	return Page{Records: records}, nil
}

func parseTeslaCard(card *goquery.Selection, province string) DealerRecord {
	street := strings.TrimSpace(card.Find("span.street-address-states").First().Text())
	locality := strings.TrimSpace(card.Find("span.locality-city-postal").First().Text())

	var phones []string
	typeSet := make(map[string]bool)
	tel := card.Find("span.tel").First()
	values := tel.Find("span.value")
	tel.Find("span.type").Each(func(i int, typ *goquery.Selection) {
		label := strings.TrimSpace(typ.Text())
		if label == "" {
			return
		}
		if i < values.Length() {
			v := values.Eq(i)
			value := strings.TrimSpace(v.Find("a").First().Text())
			if value == "" {
				value = strings.TrimSpace(v.Text())
			}
			if value != "" {
				phones = append(phones, label+": "+value)
			}
		}
		if kind := strings.TrimSpace(strings.ReplaceAll(label, "电话", "")); kind != "" {
			typeSet[kind] = true
		}
	})

	storeType := teslaDefaultType
	if len(typeSet) > 0 {
		types := make([]string, 0, len(typeSet))
		for k := range typeSet {
			types = append(types, k)
		}
		sort.Strings(types)
		storeType = strings.Join(types, ", ")
	}

	return DealerRecord{
		Province:  province,
		StoreName: strings.TrimSpace(card.Find("div.anchor-container a").First().Text()),
		Type:      storeType,
		Address:   strings.TrimSpace(street + " " + locality),
		Phone:     strings.Join(phones, "; "),
	}
}

// load returns the rendered page at pageURL once selector is present
func (t *Tesla) load(ctx context.Context, pageURL, selector string) (*goquery.Document, error) {
	var body io.Reader
	if t.browser != nil {
		if err := t.browser.Navigate(ctx, pageURL); err != nil {
			return nil, err
		}
		if err := t.browser.WaitFor(ctx, selector, teslaWaitTimeout); err != nil {
			return nil, err
		}
		html, err := t.browser.Content(ctx)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(html)
	} else {
		r, err := t.http.GetHTML(ctx, pageURL, nil)
		if err != nil {
			return nil, err
		}
		body = r
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, crawlerrors.NewParsing(t.name, "parse "+pageURL, err)
	}
	return doc, nil
}
