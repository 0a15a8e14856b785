// Package redact scrubs secret-shaped substrings from arbitrary values.
// Matches are replaced with deterministic, non-reversible tokens so log
// lines stay correlatable without ever carrying recoverable material.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
)

// Detection is one secret occurrence found in a string.
type Detection struct {
	Category string `json:"category"`
	Match    string `json:"match"`
	Offset   int    `json:"offset"`
}

// Token builds the replacement token for a match: CATEGORY_<8 hex>.
// The digest covers only the category and the match length, never the
// matched bytes. Two distinct secrets of the same category and length
// therefore collide on purpose: repeated occurrences of the "same shaped"
// secret stay correlatable across log lines. That collision is also a
// known privacy trade-off; do not fold the secret itself into the hash.
func Token(category string, matchedLength int) string {
	sum := sha256.Sum256([]byte(category + ":" + strconv.Itoa(matchedLength)))
	return category + "_" + hex.EncodeToString(sum[:4])
}

// Sanitize renders v as a display string and replaces every rule match
// with its token. Pure function of the rule table and input.
func Sanitize(v any) string {
	text := Render(v)
	for _, rule := range Rules {
		cat := rule.Category
		text = rule.Pattern.ReplaceAllStringFunc(text, func(m string) string {
			return Token(cat, len(m))
		})
	}
	return text
}

// HasSecrets reports whether any rule matches text. Short-circuits on the
// first match.
func HasSecrets(text string) bool {
	for _, rule := range Rules {
		if rule.Pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// CountSecrets returns the total match count across all rules.
func CountSecrets(text string) int {
	n := 0
	for _, rule := range Rules {
		n += len(rule.Pattern.FindAllStringIndex(text, -1))
	}
	return n
}

// DetectSecrets returns every match with its category and byte offset,
// sorted by offset. Intended for audit and inspection tooling, not for
// display: the returned matches contain the live secret text.
func DetectSecrets(text string) []Detection {
	var found []Detection
	for _, rule := range Rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			found = append(found, Detection{
				Category: rule.Category,
				Match:    text[loc[0]:loc[1]],
				Offset:   loc[0],
			})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Offset != found[j].Offset {
			return found[i].Offset < found[j].Offset
		}
		return found[i].Category < found[j].Category
	})
	return found
}

