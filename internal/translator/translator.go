// Package translator maps Chinese province and city names to their English
// names using static lookup tables. Lookups never fail: an unknown name is
// returned unchanged so a missing translation never stops a crawl.
package translator

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

//go:embed tables/*.json
var embedded embed.FS

const (
	provincesFile    = "provinces.json"
	citiesFile       = "cities.json"
	cityProvinceFile = "city_province.json"
)

// table is an immutable name lookup with a deterministic fuzzy fallback
type table struct {
	entries map[string]string
	keys    []string // sorted, for stable substring matching
}

func newTable(entries map[string]string) table {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return table{entries: entries, keys: keys}
}

// lookup tries an exact match, then the first key (in sorted order) that
// contains name. Single-character inputs such as "市" skip the fuzzy step.
func (t table) lookup(name string) (string, bool) {
	if v, ok := t.entries[name]; ok {
		return v, true
	}
	if utf8.RuneCountInString(name) < 2 {
		return "", false
	}
	for _, k := range t.keys {
		if strings.Contains(k, name) {
			return t.entries[k], true
		}
	}
	return "", false
}

// LocationTranslator holds the province and city tables
type LocationTranslator struct {
	provinces    table
	cities       table
	cityProvince table
}

// New loads the embedded tables
func New() (*LocationTranslator, error) {
	return load(func(name string) ([]byte, error) {
		return embedded.ReadFile("tables/" + name)
	})
}

// NewFromDir loads the tables from dir, falling back to the embedded copy of
// any file dir does not contain.
func NewFromDir(dir string) (*LocationTranslator, error) {
	return load(func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			return embedded.ReadFile("tables/" + name)
		}
		return data, err
	})
}

func load(read func(string) ([]byte, error)) (*LocationTranslator, error) {
	var tables [3]map[string]string
	for i, name := range []string{provincesFile, citiesFile, cityProvinceFile} {
		data, err := read(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := json.Unmarshal(data, &tables[i]); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return &LocationTranslator{
		provinces:    newTable(tables[0]),
		cities:       newTable(tables[1]),
		cityProvince: newTable(tables[2]),
	}, nil
}

// TranslateProvince returns the English name of a province, or name unchanged
func (t *LocationTranslator) TranslateProvince(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if v, ok := t.provinces.lookup(name); ok {
		return v
	}
	return name
}

// TranslateCity returns the English name of a city, or name unchanged
func (t *LocationTranslator) TranslateCity(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if v, ok := t.cities.lookup(name); ok {
		return v
	}
	return name
}

// ProvinceOfCity returns the Chinese province a city belongs to, or "".
// Only exact matches count, with a "市" suffix appended when missing.
func (t *LocationTranslator) ProvinceOfCity(city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return ""
	}
	if p, ok := t.cityProvince.entries[city]; ok {
		return p
	}
	if !strings.HasSuffix(city, "市") {
		if p, ok := t.cityProvince.entries[city+"市"]; ok {
			return p
		}
	}
	return ""
}
