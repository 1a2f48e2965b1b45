package crawler

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"sjsage522/dealerworker/helpers"
	"sjsage522/dealerworker/internal/translator"
	"sjsage522/dealerworker/services/cache"
)

// Normalizer cleans vendor records and fills derived columns
type Normalizer struct {
	brand      string
	schema     Schema
	translator *translator.LocationTranslator
}

// NewNormalizer creates a normalizer. tr may be nil, in which case the
// English columns are left as the vendor filled them.
func NewNormalizer(brand string, schema Schema, tr *translator.LocationTranslator) *Normalizer {
	return &Normalizer{brand: brand, schema: schema, translator: tr}
}

// Normalize strips newlines from every field, trims it and fills the brand
// and the translated province and city when the schema carries them.
func (n *Normalizer) Normalize(rec DealerRecord) DealerRecord {
	out := DealerRecord{
		Brand:      helpers.CleanText(rec.Brand),
		Province:   helpers.CleanText(rec.Province),
		ProvinceEN: helpers.CleanText(rec.ProvinceEN),
		City:       helpers.CleanText(rec.City),
		CityEN:     helpers.CleanText(rec.CityEN),
		District:   helpers.CleanText(rec.District),
		StoreName:  helpers.CleanText(rec.StoreName),
		Type:       helpers.CleanText(rec.Type),
		Type2:      helpers.CleanText(rec.Type2),
		Address:    helpers.CleanText(rec.Address),
		Phone:      helpers.CleanText(rec.Phone),
		Remarks:    helpers.CleanText(rec.Remarks),
	}

	if out.Brand == "" {
		out.Brand = n.brand
	}

	if n.translator != nil {
		if out.ProvinceEN == "" && out.Province != "" && n.schema.Has(FieldProvinceEN) {
			out.ProvinceEN = n.translator.TranslateProvince(out.Province)
		}
		if out.CityEN == "" && out.City != "" && n.schema.Has(FieldCityEN) {
			out.CityEN = n.translator.TranslateCity(out.City)
		}
	}
	return out
}

// KeywordRule labels a name containing any of its keywords
type KeywordRule struct {
	Keywords []string
	Label    string
}

// Classifier is an ordered list of substring rules; the first match wins.
// It is a heuristic and misclassifies names that carry several keywords.
type Classifier []KeywordRule

// Classify returns the label of the first matching rule, or ""
func (c Classifier) Classify(name string) string {
	for _, rule := range c {
		for _, kw := range rule.Keywords {
			if strings.Contains(name, kw) {
				return rule.Label
			}
		}
	}
	return ""
}

const dedupTTL = 24 * time.Hour

// Deduper remembers record keys for the lifetime of one run. Keys are
// prefixed with the run ID, so a cache shared between runs never leaks
// state from one run into the next.
type Deduper struct {
	cache  cache.CacheService
	prefix string
}

// NewDeduper creates a deduper over c
func NewDeduper(c cache.CacheService, runID, vendor string) *Deduper {
	return &Deduper{cache: c, prefix: "dedup:" + runID + ":" + vendor + ":"}
}

// Seen reports whether key was already marked in this run, marking it if
// not. A cache failure reports the key as unseen together with the error.
func (d *Deduper) Seen(key string) (bool, error) {
	sum := sha1.Sum([]byte(key))
	k := d.prefix + hex.EncodeToString(sum[:])

	if _, err := d.cache.Get(k); err == nil {
		return true, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		return false, err
	}
	return false, d.cache.Set(k, []byte{1}, dedupTTL)
}

// DefaultDedupKey keys a record on store name and address
func DefaultDedupKey(rec DealerRecord) string {
	return rec.StoreName + "\x1f" + rec.Address
}
