package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/petrijr/cascade/pkg/api"
)

// Subscribe registers a subscriber node against an external bus so that
// values produced on the subscriber's channel are delivered to the root's
// ingress. The subscriber carries no transform of its own; the graph is
// the transform.
//
// The graph must already be lowered: its ingress is the delivery target.
func Subscribe(bus api.Bus, sub *api.Node, root *api.Node) error {
	if bus == nil {
		return fmt.Errorf("cascade: nil bus")
	}
	if sub == nil {
		return fmt.Errorf("cascade: nil subscriber")
	}
	if sub.F != nil || sub.Async != nil {
		return fmt.Errorf("cascade: subscriber %s must not carry a transform", sub.ID)
	}
	if root == nil || root.Runtime == nil || root.Runtime.Offer == nil {
		return api.ErrNotLowered
	}

	offer := root.Runtime.Offer
	return bus.AddSubscriber(sub.ID, api.Subscriber{
		ID: sub.ID,
		Deliver: func(ctx context.Context, v any) error {
			return offer(ctx, v)
		},
	})
}

// Publish constructs a publisher node writing each value it receives to
// the configured topic store, announcing it on the bus when one is given,
// and passing the value through to its own children. The node is appended
// under the first node matching parentID.
//
// Publish edits the declarative graph and must run before lowering.
func Publish(bus api.Bus, parentID string, cfg api.PublishConfig, root *api.Node, logger *slog.Logger) (*api.Node, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("cascade: publish requires a topic")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("cascade: publish requires a store")
	}
	parent := api.FindNode(root, parentID)
	if parent == nil {
		return nil, fmt.Errorf("%w: %s", api.ErrNodeNotFound, parentID)
	}
	if logger == nil {
		logger = slog.Default()
	}

	topic := cfg.Topic
	store := cfg.Store
	pub := api.NewNode(func(ctx context.Context, v any) (any, error) {
		if err := store.Append(ctx, topic, v); err != nil {
			return nil, err
		}
		if bus != nil {
			// The store write stands even when the announcement fails.
			if err := bus.Announce(ctx, topic, v); err != nil {
				logger.Error("announce failed", "topic", topic, "error", err)
			}
		}
		return v, nil
	}, api.WithID("publish-"+topic))

	parent.Children = append(parent.Children, pub)
	return pub, nil
}
