// Package refcount provides acquire-if-live reference counting for objects that
// may be released concurrently with readers.
//
// Contexts and work units are stored in an Arena and referred to by Handle,
// never by raw pointer. A reader calls TryAcquire, which is a single
// compare-and-increment that fails once the count has reached zero, reads the
// value, then calls Release. The creator's reference is the one returned by
// Insert; the value is freed (and OnFree observes it) when the last holder
// releases.
//
//	objs := refcount.NewArena[gpu.DrawObj](nil)
//	h := objs.Insert(obj)
//
//	if o, ok := objs.TryAcquire(h); ok {
//	    defer objs.Release(h)
//	    render(o)
//	}
package refcount
