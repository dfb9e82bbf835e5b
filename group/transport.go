package group

import "context"

// Transport moves bytes between the ranks of one world.
//
// Sends to the same (channel, dst) pair from one rank must arrive in order and
// must not block on the receiver. Recv reads exactly len(p) bytes from the
// ordered stream of data sent by src on channel.
type Transport interface {
	// Rank returns this process's world rank.
	Rank() int

	// Size returns the world size.
	Size() int

	// Send appends p to the stream (channel, self) at dst.
	Send(ctx context.Context, channel string, dst int, p []byte) error

	// Recv fills p from the stream (channel, src) at this rank.
	Recv(ctx context.Context, channel string, src int, p []byte) error

	// Close releases resources and fails blocked receives.
	Close() error
}
