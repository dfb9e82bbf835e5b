// Package types provides core type definitions and interfaces for the scenepart library.
//
// This package contains shared types that are used across multiple packages in the
// scenepart library. By keeping these types in a separate package, we avoid import cycles
// between the main scenepart package and its internal implementations.
//
// Key types:
//   - Content: Loadable scene content with a projected cost
//   - AssignmentStrategy: Maps content onto a fixed number of data groups
//   - ProcessGroup: Collective communication over cooperating ranks
//   - CommandKind: Protocol command tags and their payloads
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
