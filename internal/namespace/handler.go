package namespace

// DefaultResourcePath is where mapping resources are looked up in every root.
const DefaultResourcePath = "META-INF/nsresolve.handlers"

// Handler is the capability every resolvable handler type must provide.
// Init is called once, after construction and before the handler is
// returned to any caller.
type Handler interface {
	Init() error
}

// Mapping is a snapshot of one table entry.
type Mapping struct {
	Key      string `json:"key" yaml:"key"`
	TypeName string `json:"type" yaml:"type"`
	Resolved bool   `json:"resolved" yaml:"resolved"`
}
