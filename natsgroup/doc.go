// Package natsgroup implements a group.Transport over NATS.
//
// Each rank subscribes to one wildcard subject and demultiplexes incoming
// messages into per-(channel, source) byte streams:
//
//	{prefix}.{session}.link.{dst}.{src}.{channel}
//
// where channel is the base64url-encoded communicator name. Core NATS
// preserves publish order per publisher connection, which is the only
// ordering the collectives need. Payloads larger than the connection's
// max payload are split into several messages; the receiving stream does not
// care about message boundaries.
//
// Startup uses a per-session JetStream KV bucket:
//
//  1. The world size is recorded with an atomic create; a rank started with a
//     different size fails with types.ErrInvalidConfig.
//  2. A rank either claims a fixed rank key or the first free one, and keeps
//     the claim alive with a renewal loop.
//  3. After subscribing, a rank publishes a ready key and waits until it has
//     seen a ready key from every rank. Core NATS drops messages for subjects
//     with no subscriber, so no rank may send before all ranks are listening.
//
// Nothing here detects a rank dying after startup. A vanished peer shows up
// as a collective that never completes; callers bound that with a context.
package natsgroup
