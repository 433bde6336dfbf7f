// Package match provides name normalization and the deterministic string
// similarity metric shared by person resolution and incident clustering.
package match

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// honorifics lists title tokens stripped from the front of a name during
// normalization. Covers the honorifics common in Hindi-language reports
// alongside the English ones.
var honorifics = map[string]bool{
	"shri":     true,
	"sri":      true,
	"smt":      true,
	"shrimati": true,
	"km":       true,
	"kumari":   true,
	"dr":       true,
	"mr":       true,
	"mrs":      true,
	"ms":       true,
	"comrade":  true,
	"cde":      true,
}

var foldCaser = cases.Fold()

var punctReplacer = strings.NewReplacer(
	",", " ",
	".", " ",
	"'", "",
	"\"", "",
	"-", " ",
	"(", " ",
	")", " ",
	"/", " ",
)

// NormalizeName standardizes a person or incident name for matching by:
//  1. Applying Unicode NFC normalization (OCR output mixes composed and
//     decomposed Devanagari forms)
//  2. Case folding
//  3. Stripping punctuation
//  4. Removing leading honorific/title tokens
//  5. Collapsing internal whitespace
func NormalizeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	name = foldCaser.String(name)
	name = punctReplacer.Replace(name)

	fields := strings.Fields(name)
	for len(fields) > 0 && honorifics[fields[0]] {
		fields = fields[1:]
	}

	return strings.Join(fields, " ")
}

// NormalizeText standardizes free-form incident text for similarity
// comparison. Same treatment as NormalizeName minus honorific stripping.
func NormalizeText(text string) string {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return ""
	}
	text = foldCaser.String(text)
	text = punctReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}
