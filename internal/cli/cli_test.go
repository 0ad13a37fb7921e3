package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/client"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	assert.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "mnemo dev"), out.String())
}

func TestExplainKeepsCode(t *testing.T) {
	err := explain(apperr.Unauthenticatedf("token expired"))
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
	assert.Contains(t, err.Error(), "mnemo login")

	plain := errors.New("boom")
	assert.Equal(t, plain, explain(plain))
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "안녕", compact(json.RawMessage(`"안녕"`)))
	assert.Equal(t, `{"a":1}`, compact(json.RawMessage(`{ "a": 1 }`)))
	assert.Equal(t, "not json", compact(json.RawMessage(`not json`)))
}

func TestPrintExercises(t *testing.T) {
	var out bytes.Buffer
	printExercises(&out, nil)
	assert.Equal(t, "no exercises\n", out.String())

	out.Reset()
	printExercises(&out, []client.Exercise{{ID: "ex1", Type: "translation", LanguageCode: "ko", Streak: 2}})
	assert.Contains(t, out.String(), "ex1")
	assert.Contains(t, out.String(), "streak 2")
}
