package encoding

import (
	"strings"
	"unicode"
)

const crockfordAlphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Crockford encodes input with Crockford's Base32 alphabet in lowercase, without padding.
// Identifiers and session tokens are rendered this way so they are URL and cookie safe.
func Crockford(input []byte) string {
	var (
		out   strings.Builder
		bits  uint
		accum uint32
	)

	out.Grow((len(input)*8 + 4) / 5)

	for _, b := range input {
		accum = accum<<8 | uint32(b)
		bits += 8

		for bits >= 5 {
			bits -= 5
			out.WriteByte(crockfordAlphabet[(accum>>bits)&0x1F])
		}
	}

	if bits > 0 {
		out.WriteByte(crockfordAlphabet[(accum<<(5-bits))&0x1F])
	}

	return out.String()
}

// NormalizeCrockford folds the usual transcription variants of a Crockford string:
// whitespace and hyphens are dropped, letters are lowered, o becomes 0, i and l become 1.
func NormalizeCrockford(input string) string {
	var out strings.Builder

	out.Grow(len(input))

	for _, char := range input {
		if unicode.IsSpace(char) || char == '-' {
			continue
		}

		switch char = unicode.ToLower(char); char {
		case 'o':
			out.WriteRune('0')
		case 'i', 'l':
			out.WriteRune('1')
		default:
			out.WriteRune(char)
		}
	}

	return out.String()
}

// IsCrockford reports whether s is a non-empty, already normalized Crockford string.
func IsCrockford(s string) bool {
	if s == "" {
		return false
	}

	for i := range len(s) {
		if strings.IndexByte(crockfordAlphabet, s[i]) < 0 {
			return false
		}
	}

	return true
}
