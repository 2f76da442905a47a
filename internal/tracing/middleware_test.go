package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer(t *testing.T) (trace.Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return tp.Tracer("test"), recorder
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMiddleware_NilTracerPassesThrough(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	h := Middleware(nil, next)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.True(t, called)
}

func TestMiddleware_RecordsServerSpan(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	var inner trace.SpanContext
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	Middleware(tracer, next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/scopes/default/resolve", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	require.Equal(t, SpanHTTP, span.Name())
	require.Equal(t, trace.SpanKindServer, span.SpanKind())
	require.Equal(t, span.SpanContext().SpanID(), inner.SpanID(), "handler sees the server span")
	require.Equal(t, codes.Ok, span.Status().Code)

	status, ok := attrValue(span.Attributes(), AttrHTTPStatus)
	require.True(t, ok)
	require.EqualValues(t, http.StatusNotFound, status.AsInt64())
	route, _ := attrValue(span.Attributes(), AttrHTTPRoute)
	require.Equal(t, "/scopes/default/resolve", route.AsString())
}

func TestMiddleware_ServerErrorMarksSpan(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	Middleware(tracer, next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestMiddleware_DefaultStatusIsOK(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })

	Middleware(tracer, next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	status, ok := attrValue(recorder.Ended()[0].Attributes(), AttrHTTPStatus)
	require.True(t, ok)
	require.EqualValues(t, http.StatusOK, status.AsInt64())
}
