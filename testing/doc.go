// Package testing provides test utilities for scenepart.
//
// The helpers follow the net/http/httptest convention of shipping test
// scaffolding as a regular package:
//
//   - StartEmbeddedNATS: in-process NATS server with JetStream
//   - Connect: extra client connections, one per simulated rank
//   - CreateJetStreamKV: memory-backed KV bucket
//   - RunRanks: drive one function per rank of an in-process group
//
// Example usage:
//
//	import sptest "github.com/arloliu/scenepart/testing"
//
//	func TestMyComponent(t *testing.T) {
//	    errs := sptest.RunRanks(t, group.NewLocal(3), func(ctx context.Context, pg types.ProcessGroup) error {
//	        return pg.Barrier(ctx)
//	    })
//	    sptest.RequireNoRankErrors(t, errs)
//	}
package testing
