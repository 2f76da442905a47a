package namespace

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/zjrosen/nsresolve/internal/log"
)

// Type is a handler type registered in a Catalog.
type Type struct {
	name   string
	rtype  reflect.Type
	newFn  func() (any, error)
	broken string // why the type cannot be instantiated, empty if it can
}

// Name returns the name mapping resources use for this type.
func (t *Type) Name() string { return t.name }

// GoType returns the type of the values New produces.
func (t *Type) GoType() reflect.Type { return t.rtype }

// Implements reports whether values of t satisfy contract.
func (t *Type) Implements(contract reflect.Type) bool {
	if contract.Kind() == reflect.Interface {
		return t.rtype.Implements(contract)
	}
	return t.rtype.AssignableTo(contract)
}

// New constructs a fresh value. Constructor panics are returned as errors.
func (t *Type) New() (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: panic: %v", ErrInstantiation, r)
		}
	}()

	v, err = t.newFn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
	}
	if isNil(v) {
		return nil, fmt.Errorf("%w: constructor returned nil", ErrInstantiation)
	}
	return v, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Catalog maps type names to constructors. It replaces loading classes by
// name: every type a mapping resource may reference has to be registered,
// typically from an init function.
// Thread-safe for concurrent access.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]*Type)}
}

// DefaultCatalog is the process-wide catalog. Handler packages register
// themselves here via init() functions.
var DefaultCatalog = NewCatalog()

// TypeNameOf returns the fully qualified name of t ("import/path.Name"),
// looking through pointers. Unnamed types fall back to t.String().
func TypeNameOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// RegisterType registers *T under TypeNameOf(T). Instances are created with
// new(T), so T must be a struct whose zero value is ready for Init. Non-struct
// types are still registered but fail at resolution with ErrTypeUnlinkable.
// Returns the registered name.
func RegisterType[T any](c *Catalog) string {
	t := reflect.TypeFor[T]()
	typ := &Type{
		name:  TypeNameOf(t),
		rtype: reflect.PointerTo(t),
		newFn: func() (any, error) { return new(T), nil },
	}
	if t.Kind() != reflect.Struct {
		typ.broken = fmt.Sprintf("%s kind is not default-constructible", t.Kind())
	}
	c.add(typ)
	return typ.name
}

// RegisterFactory registers a no-argument constructor under name.
func RegisterFactory[T any](c *Catalog, name string, factory func() (T, error)) {
	typ := &Type{
		name:  name,
		rtype: reflect.TypeFor[T](),
		newFn: func() (any, error) {
			v, err := factory()
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
	if factory == nil {
		typ.broken = "nil factory"
	}
	c.add(typ)
}

// add stores typ. A later registration under the same name replaces the earlier one.
func (c *Catalog) add(typ *Type) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.types[typ.name]; ok && prev.rtype != typ.rtype {
		log.Warn(log.CatRegistry, "Replacing registered handler type", "name", typ.name,
			"previous", prev.rtype.String(), "new", typ.rtype.String())
	}
	c.types[typ.name] = typ
}

// Lookup returns the type registered under name.
func (c *Catalog) Lookup(name string) (*Type, error) {
	c.mu.RLock()
	typ, ok := c.types[name]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, name)
	}
	if typ.broken != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrTypeUnlinkable, name, typ.broken)
	}
	return typ, nil
}

// Names returns all registered type names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered types.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}
