// Package testutil provides testing utilities for covertree.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded random datasets and brute-force oracles for nearest
// neighbour and farthest-point queries.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	points := rng.UniformVectors(1000, 8)
//	grid := rng.LatticeVectors(1000, 2, 4) // many duplicates and ties
//
// # Exact Search (Ground Truth)
//
//	results := testutil.ExactTopK(query, points, live, k)
package testutil
