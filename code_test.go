package harvest_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("builds a code record from the raw body", func(t *testing.T) {
		t.Parallel()

		e := &harvest.CodeExtractor{MinLength: 10, MaxLength: 1000}
		body := []byte("package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")

		rec, err := e.Extract("https://example.com/src/main.go?ref=v1", body)
		require.NoError(t, err)

		code, ok := rec.(*harvest.CodeRecord)
		require.True(t, ok)
		assert.Equal(t, harvest.RecordCode, code.Type)
		assert.Equal(t, "https://example.com/src/main.go?ref=v1", code.URL)
		assert.Equal(t, ".go", code.FileExtension)
		assert.Equal(t, string(body), code.Code)
		assert.Equal(t, len(body), code.SizeBytes)
		assert.Equal(t, "example.com", code.SourceDomain)
		assert.False(t, code.Timestamp.IsZero())
	})

	t.Run("rejects bodies below the minimum length", func(t *testing.T) {
		t.Parallel()

		e := &harvest.CodeExtractor{MinLength: 50, MaxLength: 1000}

		_, err := e.Extract("https://example.com/tiny.py", []byte("x = 1"))

		assert.Equal(t, harvest.ETOOSHORT, harvest.ErrorCode(err))
	})

	t.Run("truncates stored code at the maximum length", func(t *testing.T) {
		t.Parallel()

		e := &harvest.CodeExtractor{MinLength: 10, MaxLength: 100}
		body := []byte(strings.Repeat("a", 250))

		rec, err := e.Extract("https://example.com/big.py", body)
		require.NoError(t, err)

		code := rec.(*harvest.CodeRecord)
		assert.Len(t, code.Code, 100)
		assert.Equal(t, 250, code.SizeBytes, "size reflects the original body, not the truncation")
	})

	t.Run("detects language only for bodies over the sample size", func(t *testing.T) {
		t.Parallel()

		var sampled string
		detector := &mock.LanguageDetector{
			DetectFn: func(text string) (string, bool) {
				sampled = text
				return "english", true
			},
		}
		e := &harvest.CodeExtractor{MinLength: 10, MaxLength: 10000, Detector: detector}

		short, err := e.Extract("https://example.com/short.py", []byte(strings.Repeat("b", 500)))
		require.NoError(t, err)
		assert.Empty(t, short.(*harvest.CodeRecord).Language)

		long, err := e.Extract("https://example.com/long.py", []byte(strings.Repeat("b", 501)))
		require.NoError(t, err)
		assert.Equal(t, "english", long.(*harvest.CodeRecord).Language)
		assert.Len(t, sampled, 500)
	})

	t.Run("omits language when detection is unreliable", func(t *testing.T) {
		t.Parallel()

		detector := &mock.LanguageDetector{
			DetectFn: func(text string) (string, bool) { return "", false },
		}
		e := &harvest.CodeExtractor{MinLength: 10, MaxLength: 10000, Detector: detector}

		rec, err := e.Extract("https://example.com/x.py", []byte(strings.Repeat("c", 600)))
		require.NoError(t, err)

		assert.Empty(t, rec.(*harvest.CodeRecord).Language)
	})

	t.Run("fails on an unparseable URL", func(t *testing.T) {
		t.Parallel()

		e := &harvest.CodeExtractor{MinLength: 1, MaxLength: 100}

		_, err := e.Extract("://bad", []byte("some content"))

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
	})
}
