package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lazypower/mnemo/internal/apperr"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		input string
		want  apperr.Code
	}{
		{"Korean verbs", ""},
		{"한국어", ""},
		{"", apperr.BadUserInput},
		{" leading", apperr.UnnecessaryWhitespaces},
		{"trailing ", apperr.UnnecessaryWhitespaces},
		{"double  space", apperr.UnnecessaryWhitespaces},
		{"tab\t\tinside", apperr.UnnecessaryWhitespaces},
		{" ", apperr.UnnecessaryWhitespaces},
		{strings.Repeat("x", maxNameChars+1), apperr.BadUserInput},
	}

	for _, tt := range tests {
		got := apperr.CodeOf(ValidateName("name", tt.input))
		if got != tt.want {
			t.Errorf("ValidateName(%q) code = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateExerciseType(t *testing.T) {
	for _, ok := range []string{"translation", "multiple-choice", "free_text", "cloze2"} {
		if err := validateExerciseType(ok); err != nil {
			t.Errorf("validateExerciseType(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "Translation", "free text", "../etc", strings.Repeat("a", maxTypeChars+1)} {
		if err := validateExerciseType(bad); err == nil {
			t.Errorf("validateExerciseType(%q) = nil, want error", bad)
		}
	}
}

func TestResolveLanguage(t *testing.T) {
	tests := []struct {
		explicit   string
		assignment string
		want       string
		code       apperr.Code
	}{
		{"ko", `"anything"`, "ko", ""},
		{"EN-us", `"anything"`, "en-US", ""},
		{"", `{"prompt":"안녕"}`, "ko", ""},
		{"", `{"prompt":"ひらがな"}`, "ja", ""},
		{"", `{"prompt":"カタカナと漢字"}`, "ja", ""},
		{"", `["สวัสดี"]`, "th", ""},
		{"", `{"q":"Καλημέρα","a":"good morning"}`, "el", ""},
		{"", `"שלום"`, "he", ""},
		{"", `"გამარჯობა"`, "ka", ""},
		{"", `"Բարեւ"`, "hy", ""},
		{"", `{"prompt":"hello"}`, "", apperr.LanguageUndetermined},
		{"", `{"prompt":"漢字"}`, "", apperr.LanguageUndetermined},
		{"", `{"a":"안녕","b":"ひらがな"}`, "", apperr.LanguageUndetermined},
		{"", `{`, "", apperr.BadUserInput},
		{"!!", `"x"`, "", apperr.LanguageUndetermined},
	}

	for _, tt := range tests {
		got, err := resolveLanguage(tt.explicit, json.RawMessage(tt.assignment))
		if code := apperr.CodeOf(err); code != tt.code {
			t.Errorf("resolveLanguage(%q, %s) code = %q, want %q (err %v)", tt.explicit, tt.assignment, code, tt.code, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveLanguage(%q, %s) = %q, want %q", tt.explicit, tt.assignment, got, tt.want)
		}
	}
}

func TestCanonicalLanguages(t *testing.T) {
	got, err := CanonicalLanguages([]string{"en-us", " KO ", "pt-br"})
	if err != nil {
		t.Fatalf("CanonicalLanguages: %v", err)
	}
	want := []string{"en-US", "ko", "pt-BR"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("code %d = %q, want %q", i, got[i], want[i])
		}
	}

	if got, err := CanonicalLanguages(nil); err != nil || got != nil {
		t.Errorf("CanonicalLanguages(nil) = %v, %v", got, err)
	}
	if _, err := CanonicalLanguages([]string{"en", "!!"}); apperr.CodeOf(err) != apperr.LanguageUndetermined {
		t.Errorf("invalid code: got %v", err)
	}
}
