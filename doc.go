// Package covertree provides an in-memory cover tree for exact Euclidean
// nearest-neighbor search over float32 points.
//
// A cover tree arranges points on levels whose covering radius grows as
// base^level. Each node covers its subtree, siblings are separated, and
// queries prune whole subtrees with the triangle inequality.
//
// # Quick Start
//
//	points := [][]float32{{0}, {1}, {2}, {3}, {100}}
//	t, err := covertree.Build(points, covertree.Unbounded)
//	if err != nil { ... }
//	defer t.Close()
//
//	n, _ := t.NearestNeighbor([]float32{0.9})   // n.ID == 1
//	knn, _ := t.KNearestNeighbors([]float32{2.2}, 3)
//
// # Truncation
//
// Build takes a truncation depth. With truncation T >= 0 no node sits more
// than T edges below the root; deeper points collapse into the deepest
// allowed node as members. Queries still scan members, so results stay
// exact while the tree gets shallower. Unbounded keeps every level.
//
// # Mutation
//
// Insert appends a point under the next identity. Remove deletes a point
// and repairs the tree before returning. Identities are never reused.
//
// # Batch Queries
//
// Nearest and KNearest answer many queries on a bounded worker pool
// (WithWorkers). Any identity a query produces outside the identity space
// is replaced by a valid one, counted, reported to the MetricsCollector and
// logged at warn level; WithMaxAnomalyWarnings caps the log lines per call.
//
// # Spread-Out Seeds
//
// SpreadOut performs farthest-point sampling over the tree. Its output is
// suitable as initial centroids for k-means (SpreadOutVectors).
//
// # Snapshots
//
//	data, _ := t.MarshalBinary()
//	restored, _ := covertree.Decode(data)
//
//	store := blobstore.NewLocalStore("./snapshots")
//	_ = t.Save(ctx, store, "products.cvt")
//	restored, _ = covertree.Load(ctx, store, "products.cvt")
//
// Snapshots embed every point, so a decoded tree is independent of the
// original. See package persistence for the envelope format.
package covertree
