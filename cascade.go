package cascade

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/cascade/internal/engine"
	"github.com/petrijr/cascade/internal/msgbus"
	"github.com/petrijr/cascade/internal/queue"
	"github.com/petrijr/cascade/internal/topicstore"
	"github.com/petrijr/cascade/pkg/api"
	"github.com/petrijr/cascade/pkg/pool"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Node           = api.Node
	NodeOption     = api.NodeOption
	Runtime        = api.Runtime
	Transform      = api.Transform
	AsyncTransform = api.AsyncTransform
	Predicate      = api.Predicate
	Emitter        = api.Emitter
	ShutdownFunc   = api.ShutdownFunc

	Observer             = api.Observer
	GraphMetrics         = api.GraphMetrics
	GraphMetricsSnapshot = api.GraphMetricsSnapshot

	Bus           = api.Bus
	Subscriber    = api.Subscriber
	TopicStore    = api.TopicStore
	PublishConfig = api.PublishConfig

	// Rewrite is a lowering pass folded over a graph by GraphRewrite,
	// RunSync and RunPool.
	Rewrite = engine.Rewrite

	// RefillFunc produces a batch of source values for an idle ingress.
	RefillFunc = engine.RefillFunc

	// PriorityFunc keys the priority ingress; smaller keys first.
	PriorityFunc = queue.PriorityFunc

	// PriorityItem wraps a value on the priority ingress; its Callback,
	// if set, runs after the root's transform completes.
	PriorityItem = queue.Item

	// RedisBus is the Redis-backed Bus; Close stops its receive loops.
	RedisBus = msgbus.RedisBus
)

// Re-export node construction and tree utilities.

var (
	NewNode      = api.NewNode
	WithID       = api.WithID
	WithMultimap = api.WithMultimap
	WithWhen     = api.WithWhen
	WithThreads  = api.WithThreads
	WithAsync    = api.WithAsync
	WithShutdown = api.WithShutdown

	UpdateNode  = api.UpdateNode
	UpdateNodes = api.UpdateNodes
	FilterNodes = api.FilterNodes
	FindNode    = api.FindNode

	TimingObserver = api.TimingObserver
)

// Re-export common errors.

var (
	ErrQueueFull     = api.ErrQueueFull
	ErrNotComparable = api.ErrNotComparable
	ErrNotLowered    = api.ErrNotLowered
	ErrNodeNotFound  = api.ErrNodeNotFound
	ErrPoolSize      = pool.ErrPoolSize
)

// RunConfig tunes pooled execution. The zero value is usable.
type RunConfig struct {
	// Logger receives swallowed errors. Defaults to slog.Default().
	Logger *slog.Logger

	// Yield parks idle workers between polls. Defaults to a 5s sleep.
	Yield pool.YieldFunc

	// DrainTimeout and ForceTimeout bound the two shutdown phases of
	// each node's pool. Both default to 60s.
	DrainTimeout time.Duration
	ForceTimeout time.Duration
}

func (c RunConfig) poolOptions() engine.PoolOptions {
	return engine.PoolOptions{
		Logger:       c.Logger,
		Yield:        c.Yield,
		DrainTimeout: c.DrainTimeout,
		ForceTimeout: c.ForceTimeout,
	}
}

// Standard lowering passes.

var (
	// QueueRewrite allocates one FIFO per child edge and wires each
	// node's In and Out.
	QueueRewrite Rewrite = engine.QueueRewrite

	// FIFOIn gives the root a deduplicating FIFO ingress.
	FIFOIn Rewrite = engine.FIFOIn
)

// PriorityIn returns a rewrite replacing the root's ingress with a
// bounded priority queue ordered by prio (smaller keys first).
// capacity <= 0 uses the default bound of 200. Offers beyond capacity
// fail with ErrQueueFull; they are never silently dropped.
func PriorityIn(prio PriorityFunc, capacity int) Rewrite {
	return engine.PriorityIn(prio, capacity, nil)
}

// AddPool returns a rewrite backing every vertex with a running worker
// pool of its Threads size (default: host CPU count).
func AddPool() Rewrite {
	return AddPoolWith(RunConfig{})
}

// AddPoolWith is AddPool with explicit configuration.
func AddPoolWith(cfg RunConfig) Rewrite {
	return func(root *Node) error {
		return engine.AddPool(root, cfg.poolOptions())
	}
}

// ObserverRewrite returns a rewrite mapping obs over every vertex,
// replacing each transform with the one obs returns for it.
func ObserverRewrite(obs Observer) Rewrite {
	return engine.ObserverRewrite(obs)
}

// GraphRewrite folds the given rewrites over the graph, left to right.
func GraphRewrite(root *Node, rewrites ...Rewrite) error {
	return engine.GraphRewrite(root, rewrites...)
}

// CompRewrite compiles the graph into a single composed function running
// on the caller's thread.
func CompRewrite(root *Node) (Transform, error) {
	return engine.CompRewrite(root, nil)
}

// RunSync folds the rewrites over the graph, compiles it, and applies
// the composed function to each input inline. No queues, no pools.
func RunSync(ctx context.Context, root *Node, data []any, rewrites ...Rewrite) error {
	return engine.RunSync(ctx, root, data, nil, rewrites...)
}

// RunPool lowers the graph for pooled execution and starts it. With no
// rewrites it applies QueueRewrite, FIFOIn and AddPool. Feed the running
// graph with Offer and stop it with KillGraph.
func RunPool(root *Node, rewrites ...Rewrite) error {
	return engine.RunPool(root, engine.PoolOptions{}, rewrites...)
}

// RunPoolWith is RunPool with explicit configuration.
func RunPoolWith(root *Node, cfg RunConfig, rewrites ...Rewrite) error {
	return engine.RunPool(root, cfg.poolOptions(), rewrites...)
}

// Offer feeds a value into a running graph's ingress.
func Offer(ctx context.Context, root *Node, v any) error {
	return engine.Offer(ctx, root, v)
}

// ScheduleRefill starts a scheduler that tops up the root's ingress from
// refill every freq while the queue is empty. A shutdown action stopping
// the scheduler is appended to the root.
func ScheduleRefill(refill RefillFunc, freq time.Duration, root *Node) error {
	_, err := engine.ScheduleRefill(refill, freq, root, nil)
	return err
}

// KillGraph runs every vertex's shutdown actions, logging and swallowing
// per-action errors. It is idempotent and safe on a graph that was never
// started.
func KillGraph(root *Node) {
	engine.KillGraph(root, nil)
}

// Subscribe registers a subscriber node against bus so values produced
// on the subscriber's channel reach the root's ingress. The subscriber
// must not carry a transform; the graph must be lowered.
func Subscribe(bus Bus, sub *Node, root *Node) error {
	return engine.Subscribe(bus, sub, root)
}

// Publish appends a publisher node under parentID writing each value to
// the configured topic store and announcing it on bus when one is given.
// It edits the declarative graph and must run before lowering.
func Publish(bus Bus, parentID string, cfg PublishConfig, root *Node) (*Node, error) {
	return engine.Publish(bus, parentID, cfg, root, nil)
}

// Topic store constructors
// These wrap the internal adapters so external callers never need to
// import internal packages.

// NewMemoryTopicStore returns a non-durable TopicStore for tests and
// local development.
func NewMemoryTopicStore() TopicStore {
	return topicstore.NewMemoryStore()
}

// NewSQLiteTopicStore returns a TopicStore persisting topic entries in
// a SQLite database.
func NewSQLiteTopicStore(db *sql.DB) (TopicStore, error) {
	return topicstore.NewSQLiteStore(db)
}

// NewPostgresTopicStore returns a TopicStore persisting topic entries in
// PostgreSQL. The *sql.DB must use a PostgreSQL driver; import
// "github.com/jackc/pgx/v5/stdlib" for its side effects and open the DB
// with sql.Open("pgx", dsn).
func NewPostgresTopicStore(db *sql.DB) (TopicStore, error) {
	return topicstore.NewPostgresStore(db)
}

// NewRedisTopicStore returns a TopicStore keeping each topic in a Redis
// list under the given key prefix.
func NewRedisTopicStore(client *redis.Client, prefix string) TopicStore {
	return topicstore.NewRedisStore(client, prefix)
}

// NewMongoTopicStore returns a TopicStore keeping topic entries in a
// MongoDB collection.
func NewMongoTopicStore(db *mongo.Database) TopicStore {
	return topicstore.NewMongoStore(db)
}

// Bus constructors

// NewInProcBus returns an in-process Bus delivering announced values
// synchronously to subscribers.
func NewInProcBus() Bus {
	return msgbus.NewInProcBus(nil)
}

// NewRedisBus returns a Bus backed by Redis pub/sub under the given key
// prefix. Close it to stop its receive loops.
func NewRedisBus(client *redis.Client, prefix string) *RedisBus {
	return msgbus.NewRedisBus(client, prefix, nil)
}
