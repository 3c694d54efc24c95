package mirror

import (
	"fmt"
	"reflect"
	"sync"
)

// constructorTable captures declared constructor signatures per class. It
// is populated by load-time registration calls, outside the registry's
// resolution and decoration paths; GetDesignParamTypes merely reads it
// back.
type constructorTable struct {
	mu    sync.RWMutex
	types map[reflect.Type][]reflect.Type
}

var constructors = &constructorTable{
	types: make(map[reflect.Type][]reflect.Type),
}

// RegisterConstructor records the ordered parameter types of a class's
// constructor function. The ctor argument must be a func; its input types
// are captured in declaration order, with a variadic final input recorded
// as its slice type. Re-registering a class overwrites the prior capture.
//
//	mirror.RegisterConstructor(mirror.TypeFor[User](), NewUser)
func RegisterConstructor(t reflect.Type, ctor any) error {
	t = Normalize(t)
	if t == nil {
		return fmt.Errorf("register constructor: nil class type")
	}

	ft := reflect.TypeOf(ctor)
	if ft == nil || ft.Kind() != reflect.Func {
		return fmt.Errorf("register constructor for %s: ctor must be a func, got %T", QualifiedName(t), ctor)
	}

	params := make([]reflect.Type, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		params[i] = ft.In(i)
	}

	constructors.mu.Lock()
	constructors.types[t] = params
	constructors.mu.Unlock()
	return nil
}

// DesignParamTypes returns the ordered constructor parameter types
// captured for a class, or nil if none were registered. The returned
// slice is a copy.
func DesignParamTypes(t reflect.Type) []reflect.Type {
	t = Normalize(t)
	if t == nil {
		return nil
	}

	constructors.mu.RLock()
	defer constructors.mu.RUnlock()

	params, ok := constructors.types[t]
	if !ok {
		return nil
	}
	out := make([]reflect.Type, len(params))
	copy(out, params)
	return out
}

// ResetConstructors clears the captured constructor signatures (used for
// testing).
func ResetConstructors() {
	constructors.mu.Lock()
	constructors.types = make(map[reflect.Type][]reflect.Type)
	constructors.mu.Unlock()
}
