// Package gograft grafts a native inference runtime onto framework computation
// graphs, just-in-time: when a graph is executed through a Session, its fused
// sub-graphs are compiled by an engine (see the engine package) and spliced back
// into the graph as drop-in submodules, while everything else keeps running on the
// graph interpreter.
//
// The pieces:
//
//   - graphs.Graph is the framework-side computation graph, with an interpreted
//     execution path that is always available.
//   - engine.Engine is the native runtime boundary. Engines register themselves by
//     name; engine/hostcpu provides a pure Go reference engine.
//   - Session ties them together: it partitions graphs, compiles partitions on
//     first use, caches both per argument signature, and transparently falls back
//     to interpreted execution when the native path fails.
//
// A minimal use:
//
//	eng := must.M1(engine.New())                     // E.g. with hostcpu imported.
//	sess := must.M1(gograft.New(eng).Done())
//	result := must.M1(sess.Execute(graph, input))    // input is a *tensors.Tensor.
//
// Each partition that fails to compile or execute natively is permanently routed
// to the interpreter, so one unsupported construct never disables the rest of the
// graph. See Session.Execute for the exact semantics.
package gograft
