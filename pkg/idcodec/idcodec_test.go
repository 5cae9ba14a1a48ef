package idcodec

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSequentialID(t *testing.T) {
	cases := []struct {
		userID string
		count  int
		want   string
	}{
		{"User101", 0, "User101_001"},
		{"User101", 2, "User101_003"},
		{"User101", 98, "User101_099"},
		{"User101", 999, "User101_1000"},
		{"0190a1b2-admin", 11, "0190a1b2-admin_012"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NextSequentialID(tc.userID, tc.count))
	}
}

func TestEncode_KnownVectors(t *testing.T) {
	assert.Equal(t, "VXNlcjEwMV8wMDE", Encode("User101_001"))
	assert.Equal(t, "YQ", Encode("a"))
	assert.Equal(t, "YWI", Encode("ab"))
	assert.Equal(t, "Pj4-Pw", Encode(">>>?"))
	assert.Equal(t, "L1VzZXIxMDFfMDAy", Encode("/User101_002"))
}

func TestEncode_MatchesRawURLEncoding(t *testing.T) {
	for _, id := range []string{"User101_001", "???>>>", "ÿþ card", "x"} {
		assert.Equal(t, base64.RawURLEncoding.EncodeToString([]byte(id)), Encode(id))
	}
}

func TestEncode_NoReservedCharacters(t *testing.T) {
	for i := 0; i < 512; i++ {
		id := strings.Repeat(string(rune(32+i%95)), i%7+1) + "_" + NextSequentialID("User", i)
		token := Encode(id)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	ids := []string{
		"User101_001",
		"User999_1000",
		"a", "ab", "abc", "abcd",
		"~!@#$%^&*()_+{}|:\"<>?",
		"019235aa-7c1e-7b40-9f1a-9b5b3d1e0c11_007",
		"kartu nama",
	}
	for _, id := range ids {
		got, err := Decode(Encode(id))
		require.NoError(t, err, id)
		assert.Equal(t, id, got)
	}
}

func TestDecode_PrintableASCIIRoundTrip(t *testing.T) {
	var b strings.Builder
	for c := 32; c < 127; c++ {
		b.WriteByte(byte(c))
		id := b.String()
		got, err := Decode(Encode(id))
		require.NoError(t, err)
		require.Equal(t, id, got)
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, token := range []string{"", "A", "abcde", "not a token!", "%%%%"} {
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrDecode, token)
	}
}

func TestDecode_RejectsNonUTF8(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd})
	_, err := Decode(token)
	assert.ErrorIs(t, err, ErrDecode)
}
