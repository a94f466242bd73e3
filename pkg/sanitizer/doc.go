// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent: applying them twice gives the same result as applying
// them once. Invalid input is never an error here; it is cleaned up or emptied and the
// validators decide whether what is left is acceptable.
//
// Normalization includes:
//   - Single-line text (names, event names, locations): strip control characters, collapse whitespace
//   - Multi-line text (notes): strip control characters except newlines, trim each line
//   - Identifiers: trim surrounding whitespace
//   - URLs: enforce https, lowercase the host, drop tracking parameters
package sanitizer
