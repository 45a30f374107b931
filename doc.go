// Package cascade builds and executes in-process dataflow graphs of
// concurrent workers.
//
// A graph is a tree of processing nodes assembled declaratively through a
// cursor-based builder. Each node is a function of one value; a source
// value offered at the root cascades down the tree, each child receiving
// its parent's output (or each element of it, for multimap nodes),
// filtered by the child's optional predicate.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Node
//  2. Cursor
//  3. Rewrite
//  4. Worker pools
//  5. Runner
//
// # Node
//
// A Node pairs a Transform with its children plus a few declarative
// knobs: a predicate gating incoming values, a multimap flag expanding
// sequence-valued output, and a pool size for concurrent execution.
// Nodes carry stable ids (content hashes of their transforms by default)
// and an ordered list of shutdown actions.
//
// # Cursor
//
// The Cursor is the build-time view of the tree. Builder operations
// (Each, Multimap, Subgraph, AppendChild) return a cursor at the newly
// added child so construction chains naturally:
//
//	root := cascade.New().
//	    Each(parse).
//	    Multimap(splitWords).
//	    Each(countWord).
//	    Graph()
//
// The cursor never appears at runtime.
//
// # Rewrite
//
// Rewrites lower the declarative tree into executable form. RunSync
// compiles the whole graph into one composed function and runs it on the
// caller's thread; useful for tests and batch runs. RunPool applies the
// standard pooled lowering instead: one FIFO queue per edge
// (QueueRewrite), a deduplicating ingress on the root (FIFOIn, or a
// bounded PriorityIn), and a worker pool per vertex (AddPool). Custom
// passes compose through GraphRewrite; ObserverRewrite instruments every
// vertex uniformly.
//
// # Worker pools
//
// Each pooled node owns a fixed-size pool whose workers poll the node's
// input queue, run the transform, and offer outputs to the children's
// edge queues. Idle workers yield; business errors are logged and
// swallowed, so a bad value never kills a worker. Teardown is two-phase:
// a polite drain, then forced cancellation. KillGraph walks the tree and
// runs every shutdown action.
//
// Scheduled refill keeps a graph busy without an external producer:
// ScheduleRefill invokes a refill function whenever the ingress is found
// empty. Pub/sub connects graphs: Publish appends a node writing values
// to a topic store and announcing them on a bus, Subscribe feeds
// announced values into another graph's ingress.
//
// # Runner
//
// Runner bundles a built graph, the pooled lowering and teardown into a
// single process-local helper that is convenient in tests and small
// programs.
//
// For runnable examples, see the Example functions in example_test.go.
package cascade
