package pattern

import (
	"regexp"
	"strings"
)

// gazetteerCities is the bundled place-name list for the has-cities
// predicate. Matching is whole-word and case-insensitive; multi-word names
// are matched as phrases.
var gazetteerCities = []string{
	"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
	"Philadelphia", "San Antonio", "San Diego", "Dallas", "San Jose",
	"Austin", "Jacksonville", "Fort Worth", "Columbus", "Charlotte",
	"San Francisco", "Indianapolis", "Seattle", "Denver", "Boston",
	"Nashville", "Detroit", "Portland", "Memphis", "Las Vegas",
	"Louisville", "Baltimore", "Milwaukee", "Albuquerque", "Tucson",
	"Fresno", "Sacramento", "Kansas City", "Atlanta", "Miami",
	"Oakland", "Minneapolis", "Tulsa", "Cleveland", "New Orleans",
	"Tampa", "Pittsburgh", "Cincinnati", "St. Louis", "Orlando",
	"Raleigh", "Omaha", "Anaheim", "Honolulu", "El Paso",
	"Toronto", "Vancouver", "Montreal", "London", "Manchester",
	"Birmingham", "Dublin", "Sydney", "Melbourne", "Brisbane",
	"Auckland", "Berlin", "Munich", "Paris", "Amsterdam",
	"Madrid", "Barcelona", "Rome", "Milan", "Zurich",
	"Tokyo", "Osaka", "Singapore", "Hong Kong", "Seoul",
	"Mumbai", "Delhi", "Bangalore", "Dubai", "Mexico City",
}

// gazetteerRe matches any bundled city as a whole word, longest names first
// so "New York" wins over a hypothetical "York".
var gazetteerRe = buildGazetteerRegexp(gazetteerCities)

func buildGazetteerRegexp(cities []string) *regexp.Regexp {
	quoted := make([]string, len(cities))
	for i, c := range cities {
		quoted[i] = regexp.QuoteMeta(c)
	}
	// Sort longer alternatives first by a stable insertion trick: regexp
	// alternation is leftmost-first, so multi-word names must precede any
	// prefix of themselves.
	for i := 1; i < len(quoted); i++ {
		for j := i; j > 0 && len(quoted[j]) > len(quoted[j-1]); j-- {
			quoted[j], quoted[j-1] = quoted[j-1], quoted[j]
		}
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// countCities returns the number of distinct gazetteer cities mentioned.
func countCities(content string) int {
	matches := gazetteerRe.FindAllString(content, -1)
	if len(matches) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		seen[strings.ToLower(m)] = struct{}{}
	}
	return len(seen)
}
