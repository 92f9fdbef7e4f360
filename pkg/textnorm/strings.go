// Package textnorm holds the shared normalization rules applied to every
// free-text value read from an import sheet. Preview, mapping check and
// confirm all go through the same functions so they agree on what matches.
package textnorm

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	slashSpaceRe = regexp.MustCompile(`\s*/\s*`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
	headerJunkRe = regexp.MustCompile(`[^a-z0-9]`)
)

// apostrophes lists the quote-like code points people type (or that office
// suites substitute) inside names: straight, curly, low-9, reversed, backtick,
// acute accent, modifier letter and primes.
var apostrophes = strings.NewReplacer(
	"'", "",
	"`", "",
	"´", "",
	"ʼ", "",
	"‘", "",
	"’", "",
	"‚", "",
	"‛", "",
	"′", "",
	"‵", "",
)

// String trims the value, strips apostrophe-family characters, removes spaces
// around slashes and collapses runs of whitespace. String(String(s)) == String(s).
func String(s string) string {
	s = norm.NFC.String(s)
	s = strings.TrimSpace(s)
	s = apostrophes.Replace(s)
	s = slashSpaceRe.ReplaceAllString(s, "/")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Value applies String to string values and returns anything else unchanged.
func Value(v any) any {
	if s, ok := v.(string); ok {
		return String(s)
	}
	return v
}

// Fold is the case-insensitive comparison key for a normalized name.
func Fold(s string) string {
	return strings.ToLower(String(s))
}

// Alias reduces an abbreviation to its comparison key: "WE,CV,NR", "WECV&NR"
// and "wecv nr" all become "wecvnr".
func Alias(s string) string {
	s = String(s)
	s = strings.NewReplacer("&", "", ",", "").Replace(s)
	s = spaceRunRe.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// CompactKey lowercases the normalized value and drops every space. Company
// names are compared with it.
func CompactKey(s string) string {
	return strings.ReplaceAll(Fold(s), " ", "")
}

// Header lowercases a column header and strips everything that is not an
// ASCII letter or digit, so "Project Name", "project_name" and "PROJECT-NAME"
// collide.
func Header(s string) string {
	return headerJunkRe.ReplaceAllString(strings.ToLower(s), "")
}

// SlashVariant replaces spaces with slashes.
func SlashVariant(s string) string {
	return strings.ReplaceAll(s, " ", "/")
}

// SpaceVariant replaces slashes with spaces.
func SpaceVariant(s string) string {
	return strings.ReplaceAll(s, "/", " ")
}

// WordOrderKey splits on whitespace and slashes, sorts the tokens and joins
// them with a single space, so "Nyangoma Masogo" and "masogo/nyangoma" share a key.
func WordOrderKey(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '/' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	sort.Strings(words)
	return strings.Join(words, " ")
}

// SplitAliases returns the comma-separated tokens of an alias column, trimmed
// and without empties.
func SplitAliases(alias string) []string {
	parts := strings.Split(alias, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RuneLen counts characters rather than bytes.
func RuneLen(s string) int {
	return len([]rune(s))
}
