// Package conv provides checked integer conversions for on-disk layouts.
//
// Index files store offsets and document IDs in fixed-width fields. These
// helpers reject values that do not fit instead of silently wrapping.
package conv
