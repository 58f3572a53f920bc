package heap

// Move is a DataDef that moves an already-constructed value directly
// into the heap, mirroring gc.rs's `Move<T>`. Spec §9 warns this
// pattern double-allocates for large, dynamically-sized payloads
// (the descriptor-initializer pattern above exists to avoid exactly
// that); Move is kept only for small, fixed-size payloads where the
// double allocation doesn't matter.
type Move[T Traverseable[T]] struct{ Value T }

func (m Move[T]) Size() int { return 0 }

func (m Move[T]) Initialize(w WriteOnly[T]) *T { return w.Write(m.Value) }

func (m Move[T]) Traverse(t Tracer[T]) { m.Value.Traverse(t) }
