// Package idcodec builds sequential card identifiers and converts them to and
// from the compact URL-safe tokens used in shareable card links.
package idcodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrDecode is returned when a token cannot be reversed into an identifier.
var ErrDecode = errors.New("token is not an encoded identifier")

var (
	toURLSafe   = strings.NewReplacer("+", "-", "/", "_")
	fromURLSafe = strings.NewReplacer("-", "+", "_", "/")
)

// NextSequentialID returns the identifier for the next card owned by userID.
// existingCount must be the number of cards the owner already has; the
// sequence is zero padded to three digits and grows past 999 unpadded.
func NextSequentialID(userID string, existingCount int) string {
	return fmt.Sprintf("%s_%03d", userID, existingCount+1)
}

// Encode turns an identifier into a padding-free, URL-safe base64 token.
func Encode(id string) string {
	std := base64.StdEncoding.EncodeToString([]byte(id))
	return strings.TrimRight(toURLSafe.Replace(std), "=")
}

// Decode reverses Encode. Any input that is not valid base64 after the
// padding is restored, or that decodes to invalid UTF-8, yields ErrDecode.
func Decode(token string) (string, error) {
	if token == "" {
		return "", ErrDecode
	}
	std := fromURLSafe.Replace(token)
	if pad := (4 - len(std)%4) % 4; pad > 0 {
		std += strings.Repeat("=", pad)
	}

	raw, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !utf8.Valid(raw) {
		return "", ErrDecode
	}
	return string(raw), nil
}
