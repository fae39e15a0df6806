package data

import (
	"strconv"
	"strings"
)

// ParseValuation turns a free-text valuation label such as "$1.5M" or
// "$500,000" into a number for ordering. Unparseable labels sort last.
func ParseValuation(label *string) float64 {
	if label == nil {
		return -1
	}
	s := strings.ToUpper(strings.TrimSpace(*label))
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	// Leading number, then an optional K/M/B suffix; anything after is ignored
	// so "2M pre-money" still ranks.
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return -1
	}
	if end < len(s) {
		switch s[end] {
		case 'K':
			v *= 1e3
		case 'M':
			v *= 1e6
		case 'B':
			v *= 1e9
		}
	}
	return v
}
