// Package conv provides checked integer conversions for identity and length
// fields that cross between int and the fixed-width snapshot encoding.
package conv
