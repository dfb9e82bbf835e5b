// Package engine defines the render engine contract consumed by a node and
// the walker that commits a loaded scene into it.
//
// The engine owns everything pixel related. This package only creates engine
// objects from data groups and forwards protocol commands:
//
//	eng := myrenderer.New()
//	if err := engine.Commit(eng, model); err != nil {
//	    return err
//	}
//
// Recorder is an Engine that only records calls. It backs tests and passive
// ranks that follow the command stream without rendering.
package engine
