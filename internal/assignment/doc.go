// Package assignment turns registered content into the data groups a rank loads.
//
// Every rank runs the same three steps independently, with no communication:
//
//  1. NewPlan runs the assignment strategy over the full content list,
//     producing one content list per data group.
//  2. OwnedGroups maps the rank's worker index onto the group IDs it owns.
//     With P workers and G groups each worker owns D = ceil(G/P) consecutive
//     group IDs starting at rank*D.
//  3. Loader.Load materializes the owned groups into a scene.LocalModel.
//
// Because the plan is recomputed rather than transmitted, it must be
// bit-identical on every rank. Plan.Fingerprint gives callers a cheap value to
// compare across ranks before loading.
//
// # Mapping
//
// Exact multiples (G mod P == 0) are the supported configuration: every group
// has exactly one owner. Other group counts are rejected with
// types.ErrUnsupportedMapping unless partial mapping is allowed, in which case
// owned IDs wrap modulo G and some groups are loaded by more than one rank.
package assignment
