package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zjrosen/nsresolve/internal/journal"
	"github.com/zjrosen/nsresolve/internal/log"
	"github.com/zjrosen/nsresolve/internal/metrics"
	"github.com/zjrosen/nsresolve/internal/namespace"
	"github.com/zjrosen/nsresolve/internal/pubsub"
	"github.com/zjrosen/nsresolve/internal/scopes"
	"github.com/zjrosen/nsresolve/internal/tracing"
)

// instruments holds the per-invocation observers resolvers report to: the
// tracer provider, the event broker and its journal and metrics subscribers.
type instruments struct {
	tracer  *tracing.Provider
	broker  *pubsub.Broker[namespace.Event]
	store   *journal.Store
	metrics *metrics.Collector

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// startInstruments sets up tracing and, when the journal is enabled or
// withMetrics is set, an event broker with the matching subscribers.
func startInstruments(withMetrics bool) (*instruments, error) {
	tp, err := tracing.NewProvider(cfg.Tracing.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	in := &instruments{tracer: tp}

	if !cfg.Journal.Enabled && !withMetrics {
		return in, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	in.cancel = cancel
	in.broker = pubsub.NewBrokerWithBuffer[namespace.Event](256)

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		in.store = store
		in.run(ctx, journal.NewSink(store).Run)
	}
	if withMetrics {
		in.metrics = metrics.New(in.broker.Dropped)
		in.run(ctx, in.metrics.Run)
	}
	log.Debug(log.CatConfig, "Event broker started", "subscribers", in.broker.SubscriberCount(),
		"journal", cfg.Journal.Enabled, "metrics", withMetrics)
	return in, nil
}

func (in *instruments) run(ctx context.Context, consume func(context.Context, pubsub.Subscriber[namespace.Event])) {
	sub := pubsub.Channel[namespace.Event](in.broker.Subscribe(ctx))
	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		consume(ctx, sub)
	}()
}

// options returns the resolver options reporting to this runtime.
func (in *instruments) options() []namespace.Option {
	opts := []namespace.Option{namespace.WithTracer(in.tracer.Tracer())}
	if in.broker != nil {
		opts = append(opts, namespace.WithPublisher(in.broker))
	}
	return opts
}

// pool creates a resolver pool over the configured scopes.
func (in *instruments) pool() *scopes.Pool {
	return scopes.NewPool(cfg, in.options()...)
}

// Close drains pending events into the subscribers, then releases the
// journal and flushes spans.
func (in *instruments) Close() {
	if in.broker != nil {
		in.broker.Close()
		in.wg.Wait()
	}
	if in.cancel != nil {
		in.cancel()
	}
	if in.store != nil {
		if err := in.store.Close(); err != nil {
			log.ErrorErr(log.CatJournal, "Failed to close journal", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := in.tracer.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to flush traces", err)
	}
}
