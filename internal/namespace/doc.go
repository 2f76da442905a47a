// Package namespace resolves namespace keys to lazily constructed, cached
// handler singletons.
//
// The set of valid keys is declared in key=value mapping resources (by default
// META-INF/nsresolve.handlers) that may appear in several roots of a search
// Scope. All resources with the same logical path are merged in root order,
// later roots overriding earlier ones. Each value names a handler type
// registered in a Catalog.
//
// # Lifecycle
//
// Constructing a Resolver performs no I/O. The first Resolve, Load or Mappings
// call merges the resources exactly once and publishes the resulting table.
// A failed load is permanent for that Resolver: every later call returns the
// same *FatalInitError and the instance should be discarded.
//
// Entries start unresolved. The first Resolve of a key looks up the declared
// type, checks it against the handler contract, constructs it, calls Init and
// promotes the entry. Later calls return the cached handler without locking.
// Concurrent first resolutions of one key are coalesced, so Init runs once per
// key per Resolver.
//
// # Types
//
// Go has no dynamic class loading, so handler types are registered up front:
//
//	func init() {
//	    namespace.RegisterType[MyHandler](namespace.DefaultCatalog)
//	}
//
// registers *MyHandler under "example.com/pkg.MyHandler", the name mapping
// resources use to refer to it.
package namespace
