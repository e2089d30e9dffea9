// Package classflow is the core of a collaborative UML class-diagram editor.
//
// The module is organized leaf-first:
//
//   - diagram: the canonical in-memory graph of classes and relationships,
//     pure data plus invariants, no I/O.
//   - engine: mutations that preserve the invariants: connection
//     validation, association-class promotion, derived-geometry
//     reconciliation.
//   - board: the synchronization adapter reconciling local optimistic state
//     with a shared document store (last write wins, whole-field replace).
//   - interchange: the XMI codec between the graph and a standard XML
//     class-diagram interchange file.
//   - codegen: the model-to-source pipeline emitting layered artifacts
//     (entity/access/logic/interface) from a diagram snapshot.
//   - advisor: the client for the remote diagram-quality oracle, plus the
//     deterministic local structural checks.
//
// Domain violations are returned as typed errors declared in this package;
// nothing in the core is fatal to the process.
package classflow
