package namespace

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/zjrosen/nsresolve/internal/log"
	"github.com/zjrosen/nsresolve/internal/pubsub"
	"github.com/zjrosen/nsresolve/internal/tracing"
)

// Resolver resolves namespace keys to handlers satisfying H.
// H is the handler contract; it is normally an interface embedding Handler.
// A Resolver is safe for concurrent use.
type Resolver[H Handler] struct {
	id           string
	scope        Scope
	resourcePath string
	contract     reflect.Type
	publisher    pubsub.Publisher[Event]
	tracer       trace.Tracer

	cache  *mappingCache[H]
	flight singleflight.Group
}

// NewResolver creates a resolver over scope. No resources are read until the
// first Resolve, Load or Mappings call.
func NewResolver[H Handler](scope Scope, opts ...Option) *Resolver[H] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}

	r := &Resolver[H]{
		id:           o.id,
		scope:        scope,
		resourcePath: o.resourcePath,
		contract:     reflect.TypeFor[H](),
		publisher:    o.publisher,
		tracer:       o.tracer,
	}
	r.cache = newMappingCache(r.loadTable)
	return r
}

// ID returns the resolver instance id.
func (r *Resolver[H]) ID() string { return r.id }

// ResourcePath returns the logical path of the mapping resources.
func (r *Resolver[H]) ResourcePath() string { return r.resourcePath }

// Resolve returns the handler registered for key.
// An unknown key returns ok == false and a nil error. Failures to load the
// mappings return a *FatalInitError; failures to construct the handler return
// a *ResolutionError and leave other keys unaffected.
func (r *Resolver[H]) Resolve(ctx context.Context, key string) (handler H, ok bool, err error) {
	t, err := r.cache.get(ctx)
	if err != nil {
		return handler, false, err
	}

	e, found := t.entries[key]
	if !found {
		return handler, false, nil
	}
	if h, done := e.resolved(); done {
		return h, true, nil
	}

	v, err, _ := r.flight.Do(key, func() (any, error) {
		return r.promote(ctx, key, e)
	})
	if err != nil {
		return handler, false, err
	}
	return v.(H), true, nil
}

// Load forces the one-time mapping load.
func (r *Resolver[H]) Load(ctx context.Context) error {
	_, err := r.cache.get(ctx)
	return err
}

// Mappings returns every declared key with its type name and resolution
// state, sorted by key. Loads the mappings if needed.
func (r *Resolver[H]) Mappings(ctx context.Context) ([]Mapping, error) {
	t, err := r.cache.get(ctx)
	if err != nil {
		return nil, err
	}
	return t.snapshot(), nil
}

// String describes the resolver. It never triggers the mapping load.
func (r *Resolver[H]) String() string {
	t := r.cache.peek()
	if t == nil {
		return fmt.Sprintf("namespace resolver using mappings from [%s] (not loaded)", r.resourcePath)
	}
	parts := make([]string, 0, len(t.entries))
	for _, m := range t.snapshot() {
		parts = append(parts, m.Key+"="+m.TypeName)
	}
	return "namespace resolver using mappings {" + strings.Join(parts, ", ") + "}"
}

// promote runs inside the per-key flight, so at most one promotion of a key
// is in progress at a time.
func (r *Resolver[H]) promote(ctx context.Context, key string, e *entry[H]) (any, error) {
	if h, done := e.resolved(); done {
		return h, nil
	}

	_, span := r.tracer.Start(ctx, tracing.SpanResolve, trace.WithAttributes(
		attribute.String(tracing.AttrResolverID, r.id),
		attribute.String(tracing.AttrNamespaceKey, key),
		attribute.String(tracing.AttrHandlerType, e.typeName),
	))
	defer span.End()

	start := time.Now()
	h, err := r.instantiate(key, e.typeName)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatResolve, "Handler resolution failed", err, "key", key, "type", e.typeName, "resolver", r.id)
		r.publish(pubsub.FailedEvent, Event{Key: key, TypeName: e.typeName, Duration: elapsed, Err: err})
		return nil, err
	}

	e.handler.Store(&h)
	log.Debug(log.CatResolve, "Handler resolved", "key", key, "type", e.typeName, "duration", elapsed, "resolver", r.id)
	r.publish(pubsub.ResolvedEvent, Event{Key: key, TypeName: e.typeName, Duration: elapsed})
	return h, nil
}

func (r *Resolver[H]) instantiate(key, typeName string) (H, error) {
	var zero H

	typ, err := r.scope.Lookup(typeName)
	if err != nil {
		return zero, &ResolutionError{Key: key, TypeName: typeName, Err: err}
	}
	if !typ.Implements(r.contract) {
		return zero, &ResolutionError{Key: key, TypeName: typeName, Err: r.violation(key, typeName)}
	}

	v, err := typ.New()
	if err != nil {
		return zero, &ResolutionError{Key: key, TypeName: typeName, Err: err}
	}
	h, ok := v.(H)
	if !ok {
		return zero, &ResolutionError{Key: key, TypeName: typeName, Err: r.violation(key, typeName)}
	}

	if err := initHandler(h); err != nil {
		return zero, &ResolutionError{Key: key, TypeName: typeName, Err: err}
	}
	return h, nil
}

func (r *Resolver[H]) violation(key, typeName string) error {
	return &ContractViolationError{Key: key, TypeName: typeName, Contract: TypeNameOf(r.contract)}
}

func initHandler(h Handler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", ErrInit, rec)
		}
	}()
	if err := h.Init(); err != nil {
		return fmt.Errorf("%w: %w", ErrInit, err)
	}
	return nil
}

func (r *Resolver[H]) loadTable(ctx context.Context) (*table[H], error) {
	_, span := r.tracer.Start(ctx, tracing.SpanLoad, trace.WithAttributes(
		attribute.String(tracing.AttrResolverID, r.id),
		attribute.String(tracing.AttrResourcePath, r.resourcePath),
	))
	defer span.End()

	log.Debug(log.CatRegistry, "Loading handler mappings", "location", r.resourcePath, "resolver", r.id)
	start := time.Now()

	raw, err := MergeResources(r.resourcePath, r.scope)
	elapsed := time.Since(start)
	if err != nil {
		fatal := &FatalInitError{Path: r.resourcePath, Err: err}
		span.RecordError(fatal)
		span.SetStatus(codes.Error, fatal.Error())
		log.ErrorErr(log.CatRegistry, "Failed to load handler mappings", err, "location", r.resourcePath, "resolver", r.id)
		r.publish(pubsub.FailedEvent, Event{Duration: elapsed, Err: fatal})
		return nil, fatal
	}

	span.SetAttributes(attribute.Int(tracing.AttrMappingCount, len(raw)))
	log.Info(log.CatRegistry, "Loaded handler mappings", "location", r.resourcePath, "count", len(raw), "resolver", r.id)
	r.publish(pubsub.LoadedEvent, Event{Count: len(raw), Duration: elapsed})
	return newTable[H](raw), nil
}

func (r *Resolver[H]) publish(kind pubsub.EventType, ev Event) {
	if r.publisher == nil {
		return
	}
	ev.ResolverID = r.id
	ev.Location = r.resourcePath
	r.publisher.Publish(kind, ev)
}
