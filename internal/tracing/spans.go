package tracing

// Span names.
const (
	SpanLoad    = "namespace.load"
	SpanResolve = "namespace.resolve"
	SpanHTTP    = "http.request"
)

// Span attribute keys.
const (
	AttrResolverID   = "resolver.id"
	AttrResourcePath = "resolver.resource_path"
	AttrMappingCount = "resolver.mapping_count"
	AttrNamespaceKey = "namespace.key"
	AttrHandlerType  = "handler.type"

	AttrHTTPMethod = "http.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"
)
