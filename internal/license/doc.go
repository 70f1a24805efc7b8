// Package license maps raw upstream license-detail rows onto the canonical
// record shape stored by licensesync.
//
// Normalize is pure and never fails: every field is coerced on a best-effort
// basis, unparsable values become null, and the natural-key hash is always
// produced. Two raw rows that describe the same license (same user, product,
// customer, title and license window) hash identically even when the upstream
// used different key aliases, which is what makes the store upsert idempotent.
//
// The hash joins its components with "|" and does not escape the delimiter.
// A field that itself contains "|" can therefore collide with a different
// split of the same characters. Escaping would change every stored hash, so the
// limitation is accepted.
package license
