// Package vybiumprocessor is the public entry point of the Vybium processor,
// a stack machine that executes programs over the Goldilocks field and
// records an execution trace suitable for a STARK prover.
//
// # Quick Start
//
// Decoding and running a program:
//
//	prog, err := vybiumprocessor.DecodeProgram(data)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	inputs, err := vybiumprocessor.NewStackInputs([]uint64{1, 2})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	trace, err := vybiumprocessor.Execute(prog, inputs, nil, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(trace.StackOutputs().Uint64s(4))
//
// # Programs
//
// A program is a tree of code blocks. Spans hold straight-line operations;
// join, split, loop, call, syscall and dyn blocks hold control flow. Every
// block commits to its contents with a digest, and the program hash is the
// digest of the root. Execution re-hashes every block it enters in the
// hasher chiplet and fails with a hash mismatch when a recorded digest does
// not match.
//
// # Advice
//
// Non-deterministic inputs come from an advice provider: a stack of
// elements, a map from words to element lists, and a store of Merkle trees.
// Pass nil for an empty provider.
//
// # Architecture
//
//   - pkg/vybium-processor/: Public API (this package)
//   - internal/vybium-processor/: Private implementation (not importable)
//
// Implementation details in internal/ can be refactored without breaking
// the public API.
package vybiumprocessor
