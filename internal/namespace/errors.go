package namespace

import (
	"errors"
	"fmt"
)

var (
	ErrResourceLoad      = errors.New("mapping resource could not be loaded")
	ErrFatalInit         = errors.New("handler mappings unavailable")
	ErrTypeNotFound      = errors.New("handler type not found")
	ErrTypeUnlinkable    = errors.New("handler type cannot be instantiated")
	ErrContractViolation = errors.New("handler type does not satisfy the handler contract")
	ErrInstantiation     = errors.New("handler construction failed")
	ErrInit              = errors.New("handler initialization failed")
)

// ResourceLoadError reports a mapping resource that could not be discovered,
// read or parsed.
type ResourceLoadError struct {
	Path   string
	Origin string
	Err    error
}

func (e *ResourceLoadError) Error() string {
	if e.Origin == "" {
		return fmt.Sprintf("unable to load handler mappings [%s]: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("unable to load handler mappings [%s] from %s: %v", e.Path, e.Origin, e.Err)
}

func (e *ResourceLoadError) Unwrap() error { return e.Err }

func (e *ResourceLoadError) Is(target error) bool { return target == ErrResourceLoad }

// FatalInitError is returned by every call on a Resolver whose one-time
// mapping load failed.
type FatalInitError struct {
	Path string
	Err  error
}

func (e *FatalInitError) Error() string {
	return fmt.Sprintf("unable to load handler mappings from location [%s]: %v", e.Path, e.Err)
}

func (e *FatalInitError) Unwrap() error { return e.Err }

func (e *FatalInitError) Is(target error) bool { return target == ErrFatalInit }

// ContractViolationError reports a declared type that does not implement the
// contract the Resolver was instantiated with.
type ContractViolationError struct {
	Key      string
	TypeName string
	Contract string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("type [%s] for namespace [%s] does not implement the [%s] interface",
		e.TypeName, e.Key, e.Contract)
}

func (e *ContractViolationError) Is(target error) bool { return target == ErrContractViolation }

// ResolutionError wraps every failure to turn an unresolved entry into a
// handler. It always names the key and the declared type.
type ResolutionError struct {
	Key      string
	TypeName string
	Err      error
}

func (e *ResolutionError) Error() string {
	var cv *ContractViolationError
	switch {
	case errors.As(e.Err, &cv):
		return cv.Error()
	case errors.Is(e.Err, ErrTypeNotFound):
		return fmt.Sprintf("could not find handler type [%s] for namespace [%s]", e.TypeName, e.Key)
	case errors.Is(e.Err, ErrTypeUnlinkable):
		return fmt.Sprintf("unresolvable type definition for handler type [%s] for namespace [%s]: %v",
			e.TypeName, e.Key, e.Err)
	default:
		return fmt.Sprintf("failed to resolve handler type [%s] for namespace [%s]: %v",
			e.TypeName, e.Key, e.Err)
	}
}

func (e *ResolutionError) Unwrap() error { return e.Err }
