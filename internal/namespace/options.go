package namespace

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/nsresolve/internal/pubsub"
)

const tracerName = "github.com/zjrosen/nsresolve/internal/namespace"

type options struct {
	resourcePath string
	publisher    pubsub.Publisher[Event]
	tracer       trace.Tracer
	id           string
}

// Option configures a Resolver.
type Option func(*options)

// WithResourcePath overrides DefaultResourcePath. Empty paths are ignored.
func WithResourcePath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.resourcePath = path
		}
	}
}

// WithPublisher publishes load and resolution events to p.
func WithPublisher(p pubsub.Publisher[Event]) Option {
	return func(o *options) { o.publisher = p }
}

// WithTracer sets the tracer used for load and resolve spans.
// Defaults to the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithID sets the resolver instance id reported in logs, spans and events.
// Defaults to a random UUID.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

func defaultOptions() options {
	return options{
		resourcePath: DefaultResourcePath,
		tracer:       otel.Tracer(tracerName),
	}
}
