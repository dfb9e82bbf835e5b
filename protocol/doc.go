// Package protocol implements the master/worker command broadcast.
//
// One Master drives any number of Workers over a types.ProcessGroup. Every
// command is a sequence of broadcasts from the master rank: the command tag,
// each payload field in a fixed order, then an end-of-message sentinel. Both
// sides advance their own sentinel counter once per command, so a worker that
// reads one field too many or too few sees a sentinel mismatch and stops with
// a *DesyncError instead of misreading the rest of the stream.
//
// Resize is the only command followed by a Barrier: no rank renders into a
// frame buffer that some other rank has not resized yet.
//
// Master:
//
//	m, err := protocol.NewMaster(world, protocol.WithEngine(eng))
//	if err != nil {
//	    return err
//	}
//	_ = m.Resize(ctx, types.Size{Width: 800, Height: 600})
//	_ = m.RenderFrame(ctx)
//	_ = m.Terminate(ctx)
//
// Worker:
//
//	w, err := protocol.NewWorker(world, protocol.WithEngine(eng))
//	if err != nil {
//	    return err
//	}
//	if err := w.Run(ctx); err != nil { // returns nil after terminate
//	    return err
//	}
package protocol
