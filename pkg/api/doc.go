// Package api defines the public contracts of the grafo engine: the
// shared store and parameter bundle, the three-phase node lifecycle, the
// graph and flow interfaces, the retry policy, the error taxonomy, and
// the observer callbacks.
//
// Most users import the root grafo package, which re-exports everything
// here and adds the fluent builders.
package api
