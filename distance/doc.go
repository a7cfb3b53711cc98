// Package distance provides the metric used by the cover tree.
//
// The tree works in true Euclidean space: its pruning rules rely on the
// triangle inequality, which squared L2 does not satisfy. SquaredL2 is kept
// for callers that only need to rank candidates.
//
// # Usage
//
//	d := distance.Euclidean(a, b)
//	sq := distance.SquaredL2(a, b)
package distance
