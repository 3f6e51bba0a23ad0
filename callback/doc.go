// Package callback turns Go closures into C function pointers.
//
// A Manager obtains one native entry point per callback signature from the
// library and routes every native invocation to the right Go handler
// through the userdata pointer, which carries the slot's registration key:
//
//	slot, err := m.Install(callback.Signature{
//	    Name:     "SDL_TrayCallback",
//	    Params:   []layout.Prim{layout.Pointer, layout.Pointer},
//	    Result:   layout.Void,
//	    UserData: 0,
//	}, handler)
//	// pass slot.Entry as the function pointer and slot.Key as userdata
//
// Handlers may run on threads Go does not control. The manager holds no
// lock while a handler runs, so a handler may call back into native code
// that re-enters the same trampoline.
//
// # Failure model
//
// Native code cannot receive Go errors. A handler error or panic is logged
// and the native caller receives the neutral value for the result type:
// zero, false or a null pointer. Invocations for unknown or uninstalled
// keys are dropped the same way and counted as rejected.
//
// # Teardown
//
// Uninstall closes a slot and blocks until its in-flight dispatches end.
// The context passed to a handler records the dispatch it belongs to;
// passing that context on to Uninstall (directly or through a resource
// wrapper's Destroy) excludes the caller's own dispatch from the wait, so
// a callback may destroy the resource it is attached to.
package callback
