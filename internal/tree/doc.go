// Package tree implements the cover tree over a pointstore.Store.
//
// Nodes live in an arena and are addressed by uint32 indices; removed
// subtrees return their slots to a free-list. Each node carries a point, an
// integer level whose covering radius is base^level, the ordered list of its
// children and a bucket of member points: exact duplicates of the node's
// point and points that truncation collapsed into the node.
//
// The tree is not safe for concurrent mutation. Read-only operations may run
// concurrently with each other; callers serialize writers.
package tree
