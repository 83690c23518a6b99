package middleware

import "reflect"

// funcIdentity returns a stable key for a function value's underlying code
// pointer, used to dedupe registration the same way the router dedupes
// *Command pointers. Caveat: two distinct closures created from the same
// function literal (e.g. in a loop body) share one code pointer and collapse
// to a single registration — register named, top-level middleware functions
// when this matters.
func funcIdentity(fn MiddlewareFunc) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
