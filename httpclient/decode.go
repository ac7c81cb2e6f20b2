package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const lossyEncoding = "utf-8 (lossy)"

var (
	errUnsupportedEncoding = errors.New("unsupported content encoding")
	errInvalidText         = errors.New("invalid text for encoding")
)

// namedEncoding is a text encoding attempted while decoding a document
type namedEncoding struct {
	enc  encoding.Encoding
	name string
}

// fallbackEncodings are tried in order when the detected encoding fails
var fallbackEncodings = []namedEncoding{
	{name: "utf-8", enc: unicode.UTF8},
	{name: "latin-1", enc: charmap.ISO8859_1},
	{name: "cp1252", enc: charmap.Windows1252},
	{name: "iso-8859-1", enc: charmap.ISO8859_1},
}

// decompress undoes the Content-Encoding of a response body.
// Stacked encodings are undone in reverse order of application
func decompress(body []byte, contentEncoding string) ([]byte, error) {
	codings := strings.Split(contentEncoding, ",")

	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))

		var err error

		switch coding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			body, err = readGzip(body)
		case "deflate":
			body, err = readDeflate(body)
		case "br":
			body, err = io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		case "zstd":
			body, err = readZstd(body)
		default:
			err = fmt.Errorf("%w: %q", errUnsupportedEncoding, coding)
		}

		if err != nil {
			return nil, fmt.Errorf("unable to decompress %s body: %w", coding, err)
		}
	}

	return body, nil
}

func readGzip(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// readDeflate reads a zlib-wrapped body, falling back to raw deflate
// for servers that skip the zlib header
func readDeflate(body []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(body))
	if err == nil {
		defer r.Close()

		return io.ReadAll(r)
	}

	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()

	return io.ReadAll(fr)
}

func readZstd(body []byte) ([]byte, error) {
	d, err := zstd.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer d.Close()

	return io.ReadAll(d)
}

// decodeDocument converts a body to text. The encoding detected from the
// Content-Type, BOM and meta tags is trusted first, then the fallbacks are
// tried in order. If everything fails the body is decoded as lossy UTF-8,
// which is reported through the degraded flag
func decodeDocument(
	body []byte,
	contentType string,
	fallbacks []namedEncoding,
) (text string, name string, degraded bool) {
	enc, detected, _ := charset.DetermineEncoding(body, contentType)

	if text, err := decodeStrict(body, namedEncoding{enc: enc, name: detected}); err == nil {
		return text, detected, false
	}

	for _, fb := range fallbacks {
		if text, err := decodeStrict(body, fb); err == nil {
			return text, fb.name, false
		}
	}

	return strings.ToValidUTF8(string(body), string(utf8.RuneError)), lossyEncoding, true
}

// decodeStrict decodes the body, failing on invalid input instead of
// silently substituting replacement characters
func decodeStrict(body []byte, ne namedEncoding) (string, error) {
	if ne.enc == nil {
		return "", errInvalidText
	}

	if strings.EqualFold(ne.name, "utf-8") {
		body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

		if !utf8.Valid(body) {
			return "", errInvalidText
		}

		return string(body), nil
	}

	out, err := ne.enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(out) {
		return "", errInvalidText
	}

	return string(out), nil
}
