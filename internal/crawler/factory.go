package crawler

import (
	"fmt"
	"sort"
	"time"

	"sjsage522/dealerworker/config"
	"sjsage522/dealerworker/helpers"
	"sjsage522/dealerworker/internal/translator"
)

// VendorEnv is what a vendor constructor gets to work with
type VendorEnv struct {
	Settings   config.VendorSettings
	HTTP       *helpers.HTTPClient
	Translator *translator.LocationTranslator
	Config     *config.Config

	// NewBrowser starts a browser for browser-driven vendors
	NewBrowser func() Browser
}

// Registration describes one vendor: its defaults and how to build it
type Registration struct {
	Name        string
	Description string
	Defaults    config.VendorSettings
	New         func(env VendorEnv) (Vendor, error)
}

// registrations lists every vendor the crawler knows
func registrations() []Registration {
	return []Registration{
		{
			Name:        "byd",
			Description: "BYD dealers, Dynasty and Ocean networks, sales and after-sales",
			Defaults: config.VendorSettings{
				PaceBase:   time.Second,
				PaceJitter: time.Second,
				Encoding:   config.EncodingUTF8,
				Quoting:    config.QuotingAll,
			},
			New: newBYD,
		},
		{
			Name:        "tuhu",
			Description: "Tuhu service shops by city and service type",
			Defaults: config.VendorSettings{
				PaceBase:   time.Second,
				PaceJitter: time.Second,
				Encoding:   config.EncodingUTF8,
				FlushEvery: 100,
				Dedup:      true,
				Resume:     true,
				MaxPages:   100,
				PageSize:   20,
			},
			New: newTuhu,
		},
		{
			Name:        "xiaopeng",
			Description: "Xpeng stores, single list",
			Defaults: config.VendorSettings{
				PaceBase:   time.Second,
				PaceJitter: time.Second,
				Encoding:   config.EncodingUTF8BOM,
			},
			New: newXiaopeng,
		},
		{
			Name:        "lixiang",
			Description: "Li Auto retail and service centers, single list",
			Defaults: config.VendorSettings{
				Encoding: config.EncodingUTF8BOM,
				Unpaced:  true,
			},
			New: newLixiang,
		},
		{
			Name:        "volvo",
			Description: "Volvo dealers grouped by city, single list",
			Defaults: config.VendorSettings{
				Encoding: config.EncodingUTF8BOM,
				Unpaced:  true,
			},
			New: newVolvo,
		},
		{
			Name:        "michelin",
			Description: "Michelin tire shops, one file per pinyin initial",
			Defaults: config.VendorSettings{
				PaceBase:   time.Second,
				PaceJitter: 500 * time.Millisecond,
				Encoding:   config.EncodingUTF8,
			},
			New: newMichelin,
		},
		{
			Name:        "hankook",
			Description: "Hankook tire stores, paged nationwide list",
			Defaults: config.VendorSettings{
				PaceBase:   2 * time.Second,
				PaceJitter: 3 * time.Second,
				Encoding:   config.EncodingUTF8BOM,
			},
			New: newHankook,
		},
		{
			Name:        "tesla",
			Description: "Tesla stores and service centers by province",
			Defaults: config.VendorSettings{
				PaceBase:   time.Second,
				PaceJitter: time.Second,
				Encoding:   config.EncodingUTF8BOM,
				Dedup:      true,
			},
			New: newTesla,
		},
	}
}

// Registry looks vendors up by name
type Registry struct {
	byName map[string]Registration
}

// NewRegistry creates a registry of every known vendor
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Registration)}
	for _, reg := range registrations() {
		r.byName[reg.Name] = reg
	}
	return r
}

// Lookup returns the registration of name
func (r *Registry) Lookup(name string) (Registration, error) {
	reg, ok := r.byName[name]
	if !ok {
		return Registration{}, fmt.Errorf("unknown vendor %q", name)
	}
	return reg, nil
}

// Names returns the vendor names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registrations returns every registration in name order
func (r *Registry) Registrations() []Registration {
	var regs []Registration
	for _, name := range r.Names() {
		regs = append(regs, r.byName[name])
	}
	return regs
}
