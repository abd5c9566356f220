// Package locale maps a prospect's country or free-text location to the
// language research queries and synthesis should be written in.
package locale

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Language is the resolved target language.
type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// English is returned whenever nothing more specific can be resolved.
var English = Language{Name: "English", Code: "en"}

// IsEnglish reports whether queries can stay English-only.
func (l Language) IsEnglish() bool {
	return l.Code == English.Code
}

// countryLanguages is keyed by folded country names (English and native)
// and lowercase ISO 3166 alpha-2 codes.
var countryLanguages = map[string]string{
	"us": "en", "usa": "en", "united states": "en", "united states of america": "en", "america": "en",
	"gb": "en", "uk": "en", "united kingdom": "en", "england": "en", "scotland": "en", "wales": "en", "great britain": "en",
	"ie": "en", "ireland": "en", "ca": "en", "canada": "en", "au": "en", "australia": "en",
	"nz": "en", "new zealand": "en", "za": "en", "south africa": "en", "sg": "en", "singapore": "en",
	"in": "en", "india": "en",

	"de": "de", "germany": "de", "deutschland": "de",
	"at": "de", "austria": "de", "osterreich": "de",
	"ch": "de", "switzerland": "de", "schweiz": "de", "suisse": "de",
	"li": "de", "liechtenstein": "de",

	"fr": "fr", "france": "fr", "lu": "fr", "luxembourg": "fr", "monaco": "fr",

	"es": "es", "spain": "es", "espana": "es", "mx": "es", "mexico": "es",
	"ar": "es", "argentina": "es", "co": "es", "colombia": "es", "cl": "es", "chile": "es",
	"pe": "es", "peru": "es",

	"it": "it", "italy": "it", "italia": "it",
	"pt": "pt", "portugal": "pt", "br": "pt", "brazil": "pt", "brasil": "pt",
	"nl": "nl", "netherlands": "nl", "the netherlands": "nl", "nederland": "nl", "holland": "nl",
	"be": "nl", "belgium": "nl", "belgie": "nl",
	"se": "sv", "sweden": "sv", "sverige": "sv",
	"dk": "da", "denmark": "da", "danmark": "da",
	"no": "nb", "norway": "nb", "norge": "nb",
	"fi": "fi", "finland": "fi", "suomi": "fi",
	"pl": "pl", "poland": "pl", "polska": "pl",
	"cz": "cs", "czech republic": "cs", "czechia": "cs", "cesko": "cs",
	"tr": "tr", "turkey": "tr", "turkiye": "tr",
	"jp": "ja", "japan": "ja", "nippon": "ja",
	"cn": "zh", "china": "zh",
	"kr": "ko", "south korea": "ko", "korea": "ko",
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics ("Österreich" -> "osterreich").
func Fold(s string) string {
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Resolve returns the target language for a prospect. The country is looked
// up first; otherwise each comma-separated segment and then each word of the
// location is tried. Two-letter codes inside a location only count when
// written in upper case ("Munich, DE"), so words like "de" or "in" in a
// place name don't flip the language.
func Resolve(country, location string) Language {
	if code, ok := countryLanguages[Fold(country)]; ok {
		return fromCode(code)
	}

	if location == "" {
		return English
	}

	segments := strings.Split(location, ",")
	for i := len(segments) - 1; i >= 0; i-- {
		if code, ok := lookupLocationToken(segments[i]); ok {
			return fromCode(code)
		}
	}

	words := strings.FieldsFunc(location, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for i := len(words) - 1; i >= 0; i-- {
		if code, ok := lookupLocationToken(words[i]); ok {
			return fromCode(code)
		}
	}

	return English
}

func lookupLocationToken(token string) (string, bool) {
	token = strings.TrimSpace(token)
	folded := Fold(token)
	if folded == "" {
		return "", false
	}
	if len(folded) == 2 && token != strings.ToUpper(token) {
		return "", false
	}
	code, ok := countryLanguages[folded]
	return code, ok
}

func fromCode(code string) Language {
	tag, err := language.Parse(code)
	if err != nil {
		return English
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return English
	}
	return Language{Name: name, Code: tag.String()}
}
