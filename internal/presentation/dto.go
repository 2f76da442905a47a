package presentation

import (
	"errors"
	"reflect"

	"github.com/zjrosen/nsresolve/internal/handlers"
	"github.com/zjrosen/nsresolve/internal/namespace"
)

// ResolutionDTO is the outcome of resolving one key.
type ResolutionDTO struct {
	Key       string   `json:"key" yaml:"key"`
	Found     bool     `json:"found" yaml:"found"`
	Type      string   `json:"type,omitempty" yaml:"type,omitempty"`
	Namespace string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Elements  []string `json:"elements,omitempty" yaml:"elements,omitempty"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// FromResolve converts the results of Resolver.Resolve for key.
func FromResolve(key string, h handlers.ElementHandler, ok bool, err error) ResolutionDTO {
	dto := ResolutionDTO{Key: key}
	if err != nil {
		dto.Error = err.Error()
		var re *namespace.ResolutionError
		if errors.As(err, &re) {
			dto.Found = true
			dto.Type = re.TypeName
		}
		return dto
	}
	if !ok {
		return dto
	}
	dto.Found = true
	dto.Type = namespace.TypeNameOf(reflect.TypeOf(h))
	dto.Namespace = h.Namespace()
	dto.Elements = h.Elements()
	return dto
}

// ScopeDTO describes a configured search scope.
type ScopeDTO struct {
	Name         string   `json:"name" yaml:"name"`
	ResourcePath string   `json:"resource_path" yaml:"resource_path"`
	Builtin      bool     `json:"builtin" yaml:"builtin"`
	Roots        []string `json:"roots" yaml:"roots"`
	Built        bool     `json:"built" yaml:"built"` // a resolver exists for the scope
}

// TypeDTO describes a handler type registered in a catalog.
type TypeDTO struct {
	Name    string `json:"name" yaml:"name"`
	GoType  string `json:"go_type,omitempty" yaml:"go_type,omitempty"`
	Element bool   `json:"element" yaml:"element"` // satisfies handlers.ElementHandler
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FromCatalog lists the types registered in c, sorted by name. Types that
// cannot be instantiated carry the lookup error.
func FromCatalog(c *namespace.Catalog) []TypeDTO {
	contract := reflect.TypeFor[handlers.ElementHandler]()
	names := c.Names()
	dtos := make([]TypeDTO, 0, len(names))
	for _, name := range names {
		dto := TypeDTO{Name: name}
		typ, err := c.Lookup(name)
		if err != nil {
			dto.Error = err.Error()
		} else {
			dto.GoType = typ.GoType().String()
			dto.Element = typ.Implements(contract)
		}
		dtos = append(dtos, dto)
	}
	return dtos
}
