package artist

import (
	"regexp"
	"strings"
)

// Biographies on the scrobble service sometimes belong to
// disambiguation pages that mix several unrelated acts under one name
// ("There are at least three bands named ..."). Such pages carry
// statistics for all of them at once and cannot be validated.

var numberWords = []string{
	"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen",
	"eighteen", "nineteen", "twenty", "thirty", "forty", "fifty", "sixty", "seventy",
	"eighty", "ninety", "hundred", "thousand", "million", "billion", "trillion",
}

var conglomerateRe = regexp.MustCompile(
	`(?i)^there\s+(?:is|are)\s+` +
		`(?:(?:at\s+least\s+)?(?:\d+|` + strings.Join(numberWords, "|") + `)|` +
		`multiple|many|several|numerous|a\s+couple|a\s+few)` +
		`\s+(?:bands|artists|groups|singers|musicians|duos)` +
		`(?:\s+(?:and|or)\s+(?:bands|artists|groups|singers|musicians|duos))?` +
		`\s+(?:named|called)(?:\s+\S+)*\s*[.,:]*`,
)

// IsConglomeratePage reports whether the biography text reads like a
// disambiguation page covering multiple artists.
func IsConglomeratePage(bio string) bool {
	return conglomerateRe.MatchString(strings.TrimSpace(bio))
}

// IsConglomeratePage reports whether the artist's scrobble biography
// marks it as a disambiguation page.
func (a *Artist) IsConglomeratePage() bool {
	if a.Scrobble == nil {
		return false
	}
	return IsConglomeratePage(a.Scrobble.Bio)
}
