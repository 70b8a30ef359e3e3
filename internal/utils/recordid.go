package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// RecordIDHookFunc lets tests override NewRecordID. When override is false the
// random generator is used.
type RecordIDHookFunc func() (id string, override bool)

// NewRecordIDHook is set by tests to force specific IDs (e.g. collisions).
var NewRecordIDHook RecordIDHookFunc

// RecordIDLength is the length of an encoded record ID: 6 bytes in Crockford base32.
const RecordIDLength = 10

const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockford = base32.NewEncoding(crockfordAlphabet).WithPadding(base32.NoPadding)

// NewRecordID returns a random 10-character Crockford base32 identifier.
func NewRecordID() string {
	if NewRecordIDHook != nil {
		if id, override := NewRecordIDHook(); override {
			return id
		}
	}

	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms; zeros collide and get retried
		return strings.Repeat("0", RecordIDLength)
	}
	return crockford.EncodeToString(b[:])
}

// NormalizeRecordID upper-cases s and maps the commonly confused letters
// (O, I, L) onto their Crockford digits.
func NormalizeRecordID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("O", "0", "I", "1", "L", "1", "-", "").Replace(s)
}

// IsRecordID reports whether s is a well-formed record ID after normalization.
func IsRecordID(s string) bool {
	s = NormalizeRecordID(s)
	if len(s) != RecordIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(crockfordAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}
