package api

import (
	"context"
	"fmt"
	"reflect"
	"runtime"

	"github.com/cespare/xxhash/v2"
)

// Transform is the work function of a node: one value in, one value out.
// For multimap nodes the returned value must be a []any whose elements are
// forwarded to children individually.
type Transform func(ctx context.Context, v any) (any, error)

// AsyncTransform is the asynchronous variant: instead of returning its
// result, the function owns emission and may call out zero or more times,
// possibly after returning.
type AsyncTransform func(ctx context.Context, v any, out Emitter) error

// Predicate gates a node: when it returns false for an incoming value the
// node is skipped entirely for that value.
type Predicate func(v any) bool

// Emitter forwards a node's output towards its children.
type Emitter func(ctx context.Context, v any) error

// OfferFunc feeds a value into a node's ingress.
type OfferFunc func(ctx context.Context, v any) error

// PollFunc drains one value from a node's input queue without blocking.
// The second return is false when the queue is empty.
type PollFunc func() (any, bool)

// ShutdownFunc is a zero-argument termination action. Implementations must
// be idempotent and safe to invoke after partial construction.
type ShutdownFunc func() error

// Runtime holds the executable side of a node, populated by lowering.
// It is nil until a graph is lowered for pooled execution.
type Runtime struct {
	// Queue is the node's input queue: the ingress queue for the root,
	// the edge queue for every other node. Its concrete type depends on
	// the ingress decorator used.
	Queue any

	// Offer enqueues a value into Queue. Only the root carries an Offer.
	Offer OfferFunc

	// In is the poll side of Queue.
	In PollFunc

	// Out fans a produced value out to the node's children.
	Out Emitter
}

// Node is a vertex in a dataflow graph: a transform plus its children.
//
// The declarative fields are filled in at construction time through the
// builder; Runtime and the lowering-appended Shutdown entries exist only
// after the graph has been lowered for execution.
type Node struct {
	// ID is a stable identity, unique within one graph. It defaults to a
	// content hash of the transform.
	ID string

	// F is the node's transform. Exactly one of F and Async is set.
	F Transform

	// Async, if set, makes the node emit through its own calls to the
	// downstream Emitter rather than through its return value.
	Async AsyncTransform

	// Children in insertion order. Siblings are independent.
	Children []*Node

	// Multimap marks F as returning a []any whose elements children
	// receive one by one.
	Multimap bool

	// When, if non-nil, must admit a value before the node processes it.
	// In pool mode it is checked on the parent's out-edge, so a root's
	// When is not consulted there.
	When Predicate

	// Threads is the pool size for pooled execution. Zero means the host
	// CPU count.
	Threads int

	// Shutdown actions, run by KillGraph in order.
	Shutdown []ShutdownFunc

	Runtime *Runtime
}

// NodeOption configures a Node at construction time.
type NodeOption func(*Node)

// WithID overrides the default content-hash ID.
func WithID(id string) NodeOption {
	return func(n *Node) { n.ID = id }
}

// WithMultimap marks the node's transform as sequence-valued.
func WithMultimap() NodeOption {
	return func(n *Node) { n.Multimap = true }
}

// WithWhen sets the node's admission predicate.
func WithWhen(p Predicate) NodeOption {
	return func(n *Node) { n.When = p }
}

// WithThreads sets the pool size used when the graph runs in pool mode.
func WithThreads(n int) NodeOption {
	return func(node *Node) { node.Threads = n }
}

// WithAsync replaces the node's transform with an asynchronous one.
// Async nodes are only valid in pool mode.
func WithAsync(f AsyncTransform) NodeOption {
	return func(n *Node) {
		n.F = nil
		n.Async = f
	}
}

// WithShutdown appends a termination action to the node.
func WithShutdown(f ShutdownFunc) NodeOption {
	return func(n *Node) { n.Shutdown = append(n.Shutdown, f) }
}

// NewNode constructs a node for the given transform. The ID defaults to a
// hash of the transform's symbol; pass WithID to override it.
func NewNode(f Transform, opts ...NodeOption) *Node {
	n := &Node{F: f}
	for _, opt := range opts {
		opt(n)
	}
	if n.ID == "" {
		switch {
		case n.F != nil:
			n.ID = hashID(n.F)
		case n.Async != nil:
			n.ID = hashID(n.Async)
		}
	}
	return n
}

// hashID derives a stable node ID from the transform's symbol name and
// entry point.
func hashID(f any) string {
	pc := reflect.ValueOf(f).Pointer()
	name := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = fn.Name()
	}
	h := xxhash.New()
	_, _ = h.WriteString(name)
	_, _ = h.WriteString(fmt.Sprintf("/%x", pc))
	return fmt.Sprintf("n-%016x", h.Sum64())
}

// Walk visits root and all of its descendants pre-order. Returning false
// from visit stops the walk.
func Walk(root *Node, visit func(*Node) bool) {
	if root == nil {
		return
	}
	if !visit(root) {
		return
	}
	for _, c := range root.Children {
		Walk(c, visit)
	}
}

// FindNode returns the first node in pre-order whose ID matches, or nil.
func FindNode(root *Node, id string) *Node {
	var found *Node
	Walk(root, func(n *Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// UpdateNodes applies fn to every node in pre-order.
func UpdateNodes(root *Node, fn func(*Node)) {
	Walk(root, func(n *Node) bool {
		fn(n)
		return true
	})
}

// UpdateNode applies fn to the first node matching id. It reports whether
// a node was found.
func UpdateNode(root *Node, id string, fn func(*Node)) bool {
	n := FindNode(root, id)
	if n == nil {
		return false
	}
	fn(n)
	return true
}

// FilterNodes returns all nodes satisfying pred, in pre-order.
func FilterNodes(root *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	Walk(root, func(n *Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Outputs expands a transform result into the values forwarded to
// children: the elements of y for multimap nodes, otherwise y itself.
// A multimap node whose transform returned something other than []any
// yields an error.
func Outputs(n *Node, y any) ([]any, error) {
	if !n.Multimap {
		return []any{y}, nil
	}
	if y == nil {
		return nil, nil
	}
	vals, ok := y.([]any)
	if !ok {
		return nil, fmt.Errorf("multimap node %s returned %T, want []any", n.ID, y)
	}
	return vals, nil
}
