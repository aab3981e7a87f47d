// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks over the hot paths of livebind, used for
// PGO profile generation:
//   - graph file parsing in every format
//   - linking cyclic and deep graphs
//   - binding propagation through re-export chains
//   - configuration loading
//
// To generate a profile:
//
//	go test ./internal/benchmark -bench . -cpuprofile default.pgo
package benchmark
