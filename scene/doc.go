// Package scene holds the in-memory data model a rank loads its content into.
//
// The hierarchy is LocalModel → DataGroup → typed collections (meshes,
// structured volumes, sphere sets, capsule sets, AMR blocks). A data group is
// mutated only during the load phase and is read-only afterwards. Bounds are
// never cached; they are folded from the member collections on demand.
package scene
