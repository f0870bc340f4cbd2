package parser

import (
	"encoding/base64"
	"strings"
)

// DecodeBase64 attempts to decode standard and URL-safe base64 strings,
// automatically fixing missing padding.
func DecodeBase64(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return string(b), nil
	}

	b, err = base64.URLEncoding.DecodeString(s)
	if err == nil {
		return string(b), nil
	}

	return "", err
}
