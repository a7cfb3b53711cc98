// Package pointstore holds the vectors a cover tree is built over.
//
// Points live in one flat row-major []float32. A point's identity is its row
// index: original points are 0..N-1 and appended points continue the sequence.
// Identities are never reused; deleted rows are tombstoned in a roaring bitmap
// and keep their data so a snapshot can restore the identity space exactly.
package pointstore
