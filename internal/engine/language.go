package engine

import (
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"github.com/lazypower/mnemo/internal/apperr"
)

// scriptCodes maps scripts that identify a single language to their ISO
// 15924 code. Han, Latin, Cyrillic and Arabic are shared by many languages
// and cannot decide on their own.
var scriptCodes = []struct {
	table *unicode.RangeTable
	code  string
}{
	{unicode.Hangul, "Hang"},
	{unicode.Hiragana, "Hira"},
	{unicode.Katakana, "Kana"},
	{unicode.Thai, "Thai"},
	{unicode.Greek, "Grek"},
	{unicode.Hebrew, "Hebr"},
	{unicode.Georgian, "Geor"},
	{unicode.Armenian, "Armn"},
}

// resolveLanguage returns the canonical language code for an exercise. An
// explicit code wins; otherwise the language is inferred from the script of
// the assignment text.
func resolveLanguage(explicit string, assignment json.RawMessage) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		tag, err := language.Parse(explicit)
		if err != nil {
			return "", apperr.New(apperr.LanguageUndetermined, "unknown language code %q", explicit)
		}
		return tag.String(), nil
	}

	var doc any
	if len(assignment) > 0 {
		if err := json.Unmarshal(assignment, &doc); err != nil {
			return "", apperr.BadInput("assignment is not valid JSON")
		}
	}
	if code, ok := inferLanguage(collectText(doc, nil)); ok {
		return code, nil
	}
	return "", apperr.New(apperr.LanguageUndetermined, "could not determine the exercise language; set languageCode")
}

// CanonicalLanguages rewrites filter language codes into the form exercises
// are stored with, so "en-us" matches an exercise saved as "en-US".
func CanonicalLanguages(codes []string) ([]string, error) {
	if codes == nil {
		return nil, nil
	}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		tag, err := language.Parse(strings.TrimSpace(code))
		if err != nil {
			return nil, apperr.New(apperr.LanguageUndetermined, "unknown language code %q", code)
		}
		out = append(out, tag.String())
	}
	return out, nil
}

// inferLanguage returns a base language when all distinctive scripts in
// texts point to the same one.
func inferLanguage(texts []string) (string, bool) {
	found := make(map[string]bool)
	for _, s := range texts {
		for _, r := range s {
			for _, sc := range scriptCodes {
				if unicode.Is(sc.table, r) {
					found[sc.code] = true
					break
				}
			}
		}
	}

	bases := make(map[string]bool)
	for code := range found {
		base, conf := language.Make("und-" + code).Base()
		if conf == language.No {
			continue
		}
		bases[base.String()] = true
	}
	if len(bases) != 1 {
		return "", false
	}
	for b := range bases {
		return b, true
	}
	return "", false
}

// collectText gathers every string in a decoded JSON document.
func collectText(v any, out []string) []string {
	switch t := v.(type) {
	case string:
		out = append(out, t)
	case []any:
		for _, item := range t {
			out = collectText(item, out)
		}
	case map[string]any:
		for _, item := range t {
			out = collectText(item, out)
		}
	}
	return out
}
