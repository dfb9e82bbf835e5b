// Package source provides the content registry.
//
// The registry keeps content in registration order. That order is an input to
// the assignment strategies, so every rank must register the same content in
// the same order to arrive at the same assignment.
//
// Custom sources can be implemented by satisfying the types.ContentSource interface.
package source
