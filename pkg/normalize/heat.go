package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var heatRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(万|亿)?`)

// heatMatch returns the first number carrying a unit, else the first number,
// so labels like "Top3 热度 12万" resolve to the 12万.
func heatMatch(s string) []string {
	matches := heatRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	for _, m := range matches {
		if m[2] != "" {
			return m
		}
	}
	return matches[0]
}

// ParseHeat resolves a human readable popularity string such as "7904613",
// "23.00 万" or "1.5 亿" to its value in natural units. Numbers are passed
// through CoerceInt.
func ParseHeat(v any) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return CoerceInt(v)
	}

	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	m := heatMatch(s)
	if m == nil {
		return 0, false
	}

	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "万":
		f = math.Round(f * 1e4)
	case "亿":
		f = math.Round(f * 1e8)
	}
	return truncate(f)
}

// FormatWan renders a heat string as "xx.xx 万". Values without a 万 unit are
// divided by ten thousand first.
func FormatWan(s string) (string, bool) {
	s = strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), " ", "")
	m := heatMatch(s)
	if m == nil {
		return "", false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return "", false
	}
	switch m[2] {
	case "亿":
		f *= 1e4
	case "万":
	default:
		f /= 1e4
	}
	return strconv.FormatFloat(f, 'f', 2, 64) + " 万", true
}
