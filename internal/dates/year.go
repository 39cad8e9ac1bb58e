// Package dates extracts calendar years from the free-text dates found in
// parish records and GEDCOM files ("22 januari 1914", "ca 1785", "NOV 1678").
package dates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// monthTranslations maps non-English month names and abbreviations to the
// canonical English month name. Keys are lower case.
var monthTranslations = map[string]string{
	// Swedish
	"januari": "January", "februari": "February", "mars": "March", "maj": "May",
	"juni": "June", "juli": "July", "augusti": "August", "oktober": "October",
	"okt": "Oct",
	// German
	"januar": "January", "februar": "February", "märz": "March", "mai": "May",
	"dezember": "December",
	// Spanish
	"enero": "January", "febrero": "February", "marzo": "March", "abril": "April",
	"mayo": "May", "junio": "June", "julio": "July", "agosto": "August",
	"septiembre": "September", "setiembre": "September", "octubre": "October",
	"noviembre": "November", "diciembre": "December",
	// French
	"janvier": "January", "février": "February", "fevrier": "February", "avril": "April",
	"juin": "June", "juillet": "July", "août": "August", "aout": "August",
	"septembre": "September", "octobre": "October", "novembre": "November",
	"décembre": "December", "decembre": "December",
}

var (
	monthPattern   = buildMonthPattern()
	compactStamp   = regexp.MustCompile(`^(?:\d{6}|\d{8})$`)
	isoDate        = regexp.MustCompile(`^(\d{4})-\d{2}(?:-\d{2})?\b`)
	standaloneYear = regexp.MustCompile(`\b(\d{4})\b`)
)

func buildMonthPattern() *regexp.Regexp {
	names := make([]string, 0, len(monthTranslations))
	for name := range monthTranslations {
		names = append(names, regexp.QuoteMeta(name))
	}
	// longest first so "juni" is never preferred over "junio"
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])(` + strings.Join(names, "|") + `)($|[^\p{L}\p{N}])`)
}

// NormalizeMonths replaces known non-English month names with their English
// equivalents. Only whole words are replaced.
func NormalizeMonths(text string) string {
	// The match consumes the delimiter on each side, so adjacent month
	// names ("maj juni") need a second pass.
	for i := 0; i < 2; i++ {
		text = monthPattern.ReplaceAllStringFunc(text, func(match string) string {
			sub := monthPattern.FindStringSubmatch(match)
			english, ok := monthTranslations[strings.ToLower(sub[2])]
			if !ok {
				return match
			}
			return sub[1] + english + sub[3]
		})
	}
	return text
}

// ExtractYear returns the year mentioned in a free-text date. The second
// return value is false when no year could be found. Dates are not validated
// against the calendar: "35 december 1785" yields 1785.
func ExtractYear(text string) (int, bool) {
	text = strings.TrimSpace(NormalizeMonths(text))
	if text == "" {
		return 0, false
	}

	if compactStamp.MatchString(text) {
		return atoi(text[:4])
	}
	if m := isoDate.FindStringSubmatch(text); m != nil {
		return atoi(m[1])
	}
	if m := standaloneYear.FindStringSubmatch(text); m != nil {
		return atoi(m[1])
	}
	return 0, false
}

// YearPtr is ExtractYear for nullable columns.
func YearPtr(text string) *int {
	year, ok := ExtractYear(text)
	if !ok {
		return nil
	}
	return &year
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
