package sandbox

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// EncodeDataURL encodes raw artifact bytes into a self-describing data URI.
// The media type is sniffed from the content; chart artifacts are PNGs in
// practice. The encoding is lossless: DecodeDataURL returns the exact bytes.
func EncodeDataURL(data []byte) (uri, mediaType string) {
	mediaType = http.DetectContentType(data)
	// DetectContentType appends charset parameters for text; the data URI
	// media type stays bare.
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data)), mediaType
}

// DecodeDataURL reverses EncodeDataURL.
func DecodeDataURL(uri string) (data []byte, mediaType string, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI: missing payload")
	}
	mediaType, enc, ok := strings.Cut(meta, ";")
	if !ok || enc != "base64" {
		return nil, "", fmt.Errorf("unsupported data URI encoding %q", meta)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding data URI payload: %w", err)
	}
	return data, mediaType, nil
}

// IsDataURL reports whether s carries an encoded artifact rather than plain
// text output.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}
