// Package engine holds the concrete graph runtime: the sequential
// execution loop with its transition table, the node lifecycle driver
// (prep, exec with retry, fallback, post), the batch flow fan-out and
// the subflow adapter that nests one graph inside another.
//
// The package is internal; its types reach users through the root grafo
// package's constructors.
package engine
