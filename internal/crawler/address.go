package crawler

import (
	"regexp"
	"strings"
)

// AddressParts is the administrative prefix of a Chinese address
type AddressParts struct {
	Province string
	City     string
	District string
}

var municipalities = []string{"北京", "上海", "天津", "重庆"}

var (
	addressPattern  = regexp.MustCompile(`^(?:([^市区县]{1,7}?(?:省|自治区)))?(?:([^区县]{1,10}?(?:自治州|地区|市|盟|州)))?(?:(.{1,8}?(?:区|县|市|旗)))?`)
	districtPattern = regexp.MustCompile(`^(.{1,8}?(?:区|县))`)
)

// ParseAddress splits the leading province, city and district off addr.
// It is a best-effort heuristic: levels it cannot find are left empty and
// unusual addresses are split wrongly.
func ParseAddress(addr string) AddressParts {
	addr = strings.TrimSpace(addr)

	for _, m := range municipalities {
		if !strings.HasPrefix(addr, m) {
			continue
		}
		rest := strings.TrimPrefix(strings.TrimPrefix(addr, m), "市")
		parts := AddressParts{Province: m + "市", City: m + "市"}
		if match := districtPattern.FindStringSubmatch(strings.TrimSpace(rest)); match != nil {
			parts.District = match[1]
		}
		return parts
	}

	match := addressPattern.FindStringSubmatch(addr)
	if match == nil {
		return AddressParts{}
	}

	parts := AddressParts{Province: match[1], City: match[2], District: match[3]}
	if parts.District == parts.City {
		parts.District = ""
	}
	return parts
}
