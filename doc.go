// Package scenepart distributes a heterogeneous scientific scene across a
// group of cooperating processes and drives them in lock-step from a single
// master through a command broadcast protocol.
//
// Every process registers the same content in the same order. Each one then
// computes the same content-to-group assignment on its own (no assignment is
// transmitted), loads the data groups its rank owns, and follows the master's
// command stream.
//
// # Quick Start
//
// In-process, four ranks:
//
//	worlds := group.NewLocal(4)
//	for _, world := range worlds {
//	    go func() {
//	        reg := source.NewRegistry()
//	        _ = reg.Register(contents...)
//
//	        cfg := scenepart.DefaultConfig()
//	        cfg.Groups = 4
//	        node, err := scenepart.NewNode(&cfg, world, reg, scenepart.WithEngine(eng))
//	        if err != nil {
//	            log.Fatal(err)
//	        }
//	        if err := node.Load(ctx); err != nil {
//	            log.Fatal(err)
//	        }
//	        _ = node.Serve(ctx, func(ctx context.Context, m *protocol.Master) error {
//	            if err := m.Resize(ctx, scenepart.Size{Width: 800, Height: 600}); err != nil {
//	                return err
//	            }
//	            return m.RenderFrame(ctx)
//	        })
//	    }()
//	}
//
// Across processes, the natsgroup package provides a transport over NATS:
//
//	t, err := natsgroup.Connect(ctx, nc, natsgroup.Config{Session: id, Size: 4, Rank: -1})
//	world, err := group.New(t)
//
// # Architecture
//
// Nodes progress through a state machine:
//
//	INIT → LOADING → SERVING → TERMINATED
//
// Any fatal error moves a node to FAILED. Nothing is retried: configuration
// errors are reported before the first collective call, and protocol or
// collective errors are fatal to the whole group.
//
// # Packages
//
//   - strategy: assignment strategies (LPT by default)
//   - source: the content registry
//   - content: loadable descriptors for meshes, volumes, spheres, curves and AMR blocks
//   - group: collectives over a point-to-point transport
//   - natsgroup: NATS transport with KV-based rank claiming
//   - protocol: the master/worker command protocol
//   - engine: the render engine contract and a recording engine
//
// See the examples/ directory for complete working examples.
package scenepart
