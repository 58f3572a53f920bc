// Package heap implements the precise, mark-and-sweep garbage
// collected heap described in spec §3/§4.1 (component C1). It is
// grounded on `original_source/vm/src/gc.rs`'s `TypedGc<T>`, adapted
// from raw pointer arithmetic (`gc.rs`'s `value_offset`/`AllocPtr`) to
// Go generics: a `Heap[T]` is parameterised over the payload type it
// stores, exactly like `TypedGc<T>`, but a payload's "dynamically
// sized, unmovable" storage is the `T` value embedded directly in its
// header rather than a manually placed byte buffer — Go does not let
// us recover a header from a raw payload pointer the way `repr(C)`
// plus pointer offset does in Rust, so the header/payload pairing is
// modelled as a linked struct instead of pointer arithmetic (see
// DESIGN.md).
//
// The mark/sweep contract, the allocation-descriptor pattern, and the
// collect_limit doubling policy (spec §4.1) are preserved exactly.
package heap

import (
	"reflect"

	"corevm/internal/trace"
)

// headerOverhead approximates the fixed cost of a header (forward
// link, size, mark bit) for the purposes of the allocated_memory
// accounting in spec §4.1. It has no bearing on correctness, only on
// when a collection triggers.
const headerOverhead = 24

// Tracer is the mark routine a Heap exposes to Traverseable values
// during a collection: visiting a handle atomically observes-and-sets
// its mark bit (spec §4.1 step 1), returning whether it was already
// marked so traversal can terminate on cycles.
type Tracer[T Traverseable[T]] interface {
	Mark(h Handle[T]) bool
}

// Traverseable is the capability every payload of a Heap[T] and every
// root set must supply: enumerate the handles it directly holds
// (spec §3 "Traversal protocol"). T is constrained to Traverseable[T]
// itself so that a Handle[T] can recurse into the payload it points
// to without the heap needing a second, untyped visitor mechanism.
type Traverseable[T Traverseable[T]] interface {
	Traverse(t Tracer[T])
}

// Aligned is an optional capability a payload may implement to report
// its natural alignment (spec §3's "alignment" capability). The Go
// port has no raw placement step that needs it, so it is informational
// only — callers who want it can use AlignOf with a sensible default.
type Aligned interface {
	AlignOf() int
}

// AlignOf returns v's declared alignment via Aligned, or 8 (a
// reasonable default for a heap with no raw byte placement) if v does
// not implement it.
func AlignOf(v any) int {
	if a, ok := v.(Aligned); ok {
		return a.AlignOf()
	}
	return 8
}

// PayloadEqual is an optional capability a payload may implement to
// supply the "structural equality" view of Handle.Equal (spec §3:
// "iff their payloads compare equal"). Without it, Handle.Equal falls
// back to reflect.DeepEqual.
type PayloadEqual[T any] interface {
	EqualPayload(other T) bool
}

type header[T any] struct {
	next   *header[T]
	size   int
	marked bool
	value  T
}

// Handle is a non-owning, freely copyable reference to a heap object
// (spec §3's "Handle"). It does not keep the object alive on its own;
// liveness is determined exclusively by reachability from a root set
// supplied to Collect/AllocAndCollect.
type Handle[T Traverseable[T]] struct {
	h *header[T]
}

// Deref returns a pointer to the payload. The returned pointer is
// only valid until the next collection that doesn't retain this
// handle as reachable (spec §4.1 "Safety invariants").
func (h Handle[T]) Deref() *T { return &h.h.value }

// SameObject is the raw-identity comparison: true iff both handles
// address the same heap object.
func (h Handle[T]) SameObject(other Handle[T]) bool { return h.h == other.h }

// Equal is the structural-equality comparison: true iff the payloads
// compare equal, via PayloadEqual when the payload implements it, or
// reflect.DeepEqual otherwise.
func (h Handle[T]) Equal(other Handle[T]) bool {
	if eq, ok := any(h.Deref()).(PayloadEqual[T]); ok {
		return eq.EqualPayload(*other.Deref())
	}
	return reflect.DeepEqual(*h.Deref(), *other.Deref())
}

// Traverse lets a Handle[T] participate in its own payload's
// traversal: if not already marked, mark it and recurse into the
// payload (spec §4.1 step 1 "terminates on cycles").
func (h Handle[T]) Traverse(t Tracer[T]) {
	if t.Mark(h) {
		return
	}
	h.h.value.Traverse(t)
}

// WriteOnly is write-only access to the uninitialized storage an
// allocation descriptor must fill in (spec §3 "Allocation
// descriptor"). It exists so a descriptor can build a payload in
// place without first constructing it elsewhere and copying it in —
// the design note in spec §9 this whole pattern exists to satisfy.
type WriteOnly[T any] struct{ ptr *T }

// Ptr returns the address the initializer is expected to return from
// Write, so Alloc can assert identity (spec §4.1 "must assert that
// the pointer returned by the initialiser equals the one it was
// handed").
func (w WriteOnly[T]) Ptr() *T { return w.ptr }

// Write stores v and returns its address.
func (w WriteOnly[T]) Write(v T) *T {
	*w.ptr = v
	return w.ptr
}

// DataDef is the one-shot allocation descriptor supplied to Alloc /
// AllocAndCollect (spec §3 "Allocation descriptor"). It carries its
// own Traverse so it can be part of the root set during
// AllocAndCollect, covering values the descriptor references but that
// aren't reachable from anywhere else yet.
type DataDef[T Traverseable[T]] interface {
	Traverseable[T]
	// Size reports the byte size of the intended payload.
	Size() int
	// Initialize constructs the payload in w's storage and returns
	// its address.
	Initialize(w WriteOnly[T]) *T
}

// Heap is a mark-and-sweep garbage collected heap holding payloads of
// type T (spec §3 "Heap object", §4.1 component C1).
type Heap[T Traverseable[T]] struct {
	head           *header[T]
	allocatedMemory int
	collectLimit    int
}

// New creates an empty heap with the default initial collect_limit of
// 100 bytes from spec §4.1's "Collection trigger policy".
func New[T Traverseable[T]]() *Heap[T] {
	return NewWithLimit[T](100)
}

// NewWithLimit creates an empty heap with the given initial
// collect_limit, letting a caller (package vmconfig's
// "heap.initial_collect_limit" setting, via vmruntime.Session) tune
// spec §4.1's trigger policy instead of always starting from the
// spec's own example value.
func NewWithLimit[T Traverseable[T]](collectLimit int) *Heap[T] {
	return &Heap[T]{collectLimit: collectLimit}
}

// Mark implements Tracer[T]: observes-and-sets a handle's mark bit,
// reporting whether it was already set.
func (g *Heap[T]) Mark(h Handle[T]) bool {
	if h.h.marked {
		return true
	}
	h.h.marked = true
	return false
}

// Alloc reserves storage for def's payload, links it at the head of
// the live list, invokes def's initializer exactly once, and returns
// a handle to the finished payload (spec §4.1 "alloc").
//
// Out-of-memory is not a recoverable condition here (spec §4.1
// "Failure modes"): Go's own allocator backs every header, and an
// allocation failure there is fatal to the process, exactly as the
// contract requires.
func (g *Heap[T]) Alloc(def DataDef[T]) Handle[T] {
	hdr := &header[T]{size: def.Size(), next: g.head}
	g.head = hdr
	g.allocatedMemory += headerOverhead + hdr.size

	got := def.Initialize(WriteOnly[T]{ptr: &hdr.value})
	if got != &hdr.value {
		panic("heap: allocation descriptor initializer returned a different pointer than the one it was given")
	}
	return Handle[T]{h: hdr}
}

// rootsAndDef bundles a caller's root set with the descriptor about
// to be allocated so both can be traversed together (spec §4.1
// "alloc_and_collect... roots argument and the descriptor are both
// traversed as part of the root set").
type rootsAndDef[T Traverseable[T]] struct {
	roots Traverseable[T]
	def   DataDef[T]
}

func (r rootsAndDef[T]) Traverse(t Tracer[T]) {
	r.roots.Traverse(t)
	r.def.Traverse(t)
}

// AllocAndCollect may perform a collection before allocating, per
// spec §4.1's trigger policy: a collection runs when accumulated
// allocated_memory has reached collect_limit, checked before this
// allocation (not including it), mirroring gc.rs's
// `TypedGc::alloc_and_collect`.
func (g *Heap[T]) AllocAndCollect(roots Traverseable[T], def DataDef[T]) Handle[T] {
	if g.allocatedMemory >= g.collectLimit {
		g.Collect(rootsAndDef[T]{roots: roots, def: def})
	}
	return g.Alloc(def)
}

// Collect performs a mark-and-sweep collection rooted at roots (spec
// §4.1 "collect"). The caller must supply a root set that covers
// every reachable handle; omitting one is a memory-safety bug of the
// caller, not something this heap can detect (spec §4.1 "Safety
// invariants").
func (g *Heap[T]) Collect(roots Traverseable[T]) {
	before := g.ObjectCount()
	roots.Traverse(g)
	g.sweep()
	g.collectLimit = 2 * g.allocatedMemory
	trace.Debugf("heap: collect %d -> %d objects, next limit %d", before, g.ObjectCount(), g.collectLimit)
}

// sweep walks the live list, freeing every unmarked header and
// clearing the mark of every survivor (spec §4.1 step 2 "Sweep").
func (g *Heap[T]) sweep() {
	var kept *header[T]
	var tail *header[T]
	for cur := g.head; cur != nil; {
		next := cur.next
		if cur.marked {
			cur.marked = false
			cur.next = nil
			if kept == nil {
				kept = cur
			} else {
				tail.next = cur
			}
			tail = cur
		} else {
			g.allocatedMemory -= headerOverhead + cur.size
		}
		cur = next
	}
	g.head = kept
}

// ObjectCount returns the number of links on the live list (spec
// §4.1 "object_count").
func (g *Heap[T]) ObjectCount() int {
	count := 0
	for cur := g.head; cur != nil; cur = cur.next {
		count++
	}
	return count
}

// AllocatedMemory reports the running byte counter backing the
// collection trigger policy (spec §4.1).
func (g *Heap[T]) AllocatedMemory() int { return g.allocatedMemory }

// CollectLimit reports the current trigger threshold.
func (g *Heap[T]) CollectLimit() int { return g.collectLimit }

// Roots is a convenience Traverseable[T] for the common case of a root
// set that is just a flat slice of handles (e.g. a VM's value stack),
// mirroring the teacher/original's blanket Traverseable impls for
// slices and tuples (gc.rs's `impl<G,U> Traverseable<G> for [U]`).
type Roots[T Traverseable[T]] []Handle[T]

func (r Roots[T]) Traverse(t Tracer[T]) {
	for _, h := range r {
		h.Traverse(t)
	}
}
