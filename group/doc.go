// Package group implements process group collectives over a point-to-point transport.
//
// A Comm is one member's handle on a communicator: an ordered set of ranks
// sharing a name. Collectives are built from Transport.Send and
// Transport.Recv on one ordered byte stream per (communicator, peer) pair:
//
//   - Broadcast: the root sends to every member in rank order.
//   - Gather: every member sends a fixed-size buffer to the root.
//   - AllReduceMin/Max: gather to rank 0, reduce, broadcast the result.
//   - Barrier: a one-byte gather to rank 0 followed by a one-byte broadcast.
//   - Split: an all-gather of keys; members with equal keys form a child
//     communicator named after the parent and a per-parent split counter.
//
// Because every member issues the same collectives in the same order, the
// streams never need message framing. A receiver that reads the wrong number
// of bytes stays misaligned for the rest of the run, which is what lets the
// command protocol detect send/receive mismatches with a sentinel.
//
// Any failure marks the communicator as failed; every later call returns
// types.ErrCollectiveFailed without touching the transport.
//
// NewLocal builds an in-process group backed by shared mailboxes, used by
// tests and by single-process runs.
package group
