package httpclient

import (
	"bytes"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const sampleHTML = `<html><body><td>Dólar de N.A.</td><td>3.78</td></body></html>`

func gzipBytes(t *testing.T, b []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)

	_, err := w.Write(b)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func brotliBytes(t *testing.T, b []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := brotli.NewWriter(&buf)

	_, err := w.Write(b)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func zlibBytes(t *testing.T, b []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := zlib.NewWriter(&buf)

	_, err := w.Write(b)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func zstdBytes(t *testing.T, b []byte) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)

	defer enc.Close()

	return enc.EncodeAll(b, nil)
}

func latin1Bytes(t *testing.T, s string) []byte {
	t.Helper()

	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)

	return b
}

func TestDecompress(t *testing.T) {
	t.Parallel()

	raw := []byte(sampleHTML)

	testTable := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"identity", "", raw},
		{"explicit identity", "identity", raw},
		{"gzip", "gzip", gzipBytes(t, raw)},
		{"deflate", "deflate", zlibBytes(t, raw)},
		{"brotli", "br", brotliBytes(t, raw)},
		{"zstd", "zstd", zstdBytes(t, raw)},
		{"stacked", "gzip, br", brotliBytes(t, gzipBytes(t, raw))},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			out, err := decompress(testCase.body, testCase.encoding)
			require.NoError(t, err)

			assert.Equal(t, raw, out)
		})
	}

	t.Run("unsupported encoding", func(t *testing.T) {
		t.Parallel()

		_, err := decompress(raw, "compress")

		assert.ErrorIs(t, err, errUnsupportedEncoding)
	})

	t.Run("corrupt gzip", func(t *testing.T) {
		t.Parallel()

		_, err := decompress([]byte("definitely not gzip"), "gzip")

		assert.Error(t, err)
	})
}

func TestDecodeDocument(t *testing.T) {
	t.Parallel()

	t.Run("utf-8 declared", func(t *testing.T) {
		t.Parallel()

		text, name, degraded := decodeDocument(
			[]byte(sampleHTML),
			"text/html; charset=utf-8",
			fallbackEncodings,
		)

		assert.Equal(t, sampleHTML, text)
		assert.Equal(t, "utf-8", name)
		assert.False(t, degraded)
	})

	t.Run("latin-1 declared", func(t *testing.T) {
		t.Parallel()

		text, name, degraded := decodeDocument(
			latin1Bytes(t, sampleHTML),
			"text/html; charset=iso-8859-1",
			fallbackEncodings,
		)

		assert.Equal(t, sampleHTML, text)
		assert.Equal(t, "windows-1252", name) // WHATWG maps latin-1 labels to windows-1252
		assert.False(t, degraded)
	})

	t.Run("mislabeled as utf-8", func(t *testing.T) {
		t.Parallel()

		text, name, degraded := decodeDocument(
			latin1Bytes(t, sampleHTML),
			"text/html; charset=utf-8",
			fallbackEncodings,
		)

		assert.Equal(t, sampleHTML, text)
		assert.Equal(t, "latin-1", name)
		assert.False(t, degraded)
	})

	t.Run("byte order mark", func(t *testing.T) {
		t.Parallel()

		body := append([]byte("\xef\xbb\xbf"), sampleHTML...)

		text, _, degraded := decodeDocument(body, "text/html", fallbackEncodings)

		assert.Equal(t, sampleHTML, text)
		assert.False(t, degraded)
	})

	t.Run("lossy when nothing fits", func(t *testing.T) {
		t.Parallel()

		body := latin1Bytes(t, sampleHTML)

		text, name, degraded := decodeDocument(
			body,
			"text/html; charset=utf-8",
			[]namedEncoding{fallbackEncodings[0]}, // utf-8 only
		)

		assert.True(t, degraded)
		assert.Equal(t, lossyEncoding, name)
		assert.Contains(t, text, "3.78")
		assert.Contains(t, text, "�")
	})
}
