// Package model defines the domain types shared by the coordination engine.
//
// A trading network is a set of Nodes, each with a fixed position and a fixed
// one-way communication latency. Orders move goods between two nodes and are
// priced and scheduled from the distance between them. Agreements describe a
// recurring resource flow between two nodes. Every store, loop and handler in
// the repository passes these values around by copy; callers that need to
// mutate an Order or Agreement go through the component that owns it.
package model
