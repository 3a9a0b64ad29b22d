package usecase

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var errBinaryContent = errors.New("content is not valid utf-8 text")

// decodePlainText interprets stored bytes as UTF-8 text for files that do not
// require OCR, tolerating a BOM. Binary content is rejected rather than
// silently mangled.
func decodePlainText(data []byte) (string, error) {
	data = stripBOM(data)
	if !utf8.Valid(data) {
		return "", errBinaryContent
	}
	return strings.TrimSpace(string(data)), nil
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
