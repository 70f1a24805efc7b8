package license

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const keyDelimiter = "|"

// CanonicalKey builds the delimiter-joined identity tuple hashed into the
// natural key: username (full Unicode lowercasing, so "İ" becomes "i̇" as in
// rows hashed by earlier loaders), product ref, customer ref, product title
// (NFC), license start, license end. Nulls contribute empty strings.
func CanonicalKey(r Record) string {
	parts := []string{
		lowerUsername(trimSpace(deref(r.UserUsername))),
		trimSpace(deref(r.ProductRef)),
		trimSpace(deref(r.CustomerRef)),
		norm.NFC.String(trimSpace(deref(r.ProductTitle))),
		deref(r.LicenseStart),
		deref(r.LicenseEnd),
	}
	return strings.Join(parts, keyDelimiter)
}

// NaturalKeyHash returns the uppercase hex SHA-256 of CanonicalKey.
func NaturalKeyHash(r Record) string {
	sum := sha256.Sum256([]byte(CanonicalKey(r)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// lowerUsername applies the Unicode SpecialCasing lowercase mappings. A Caser
// holds state, so one is built per call.
func lowerUsername(s string) string {
	return cases.Lower(language.Und).String(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
