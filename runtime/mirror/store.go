package mirror

import (
	"reflect"
	"sort"
	"strconv"
	"sync"
)

// channelKey is the registry's private lookup channel. Class mirrors are
// persisted under this key, distinct from every application metadata key,
// so registry bookkeeping can never collide with payload identities.
type channelKey struct{ name string }

var classMirrorKey = &channelKey{"declkit.classMirror"}

// assocKey is one (key, target) association in a store.
type assocKey struct {
	key    any
	target reflect.Type
}

// Store is a process-wide declaration metadata store: a keyed association
// from (key, target type) pairs to arbitrary values, plus the resolution
// and decoration operations built on top of it.
//
// The store serializes its own map access, which is the per-target
// serialization the registry's single-writer contract relies on. Mirrors
// themselves are not internally locked: decorators for a given class are
// expected to run sequentially at registration time.
type Store struct {
	mu    sync.RWMutex
	assoc map[assocKey]any

	subMu   sync.RWMutex
	subs    map[int]func(Event)
	nextSub int
}

// NewStore creates an empty declaration metadata store.
func NewStore() *Store {
	return &Store{
		assoc: make(map[assocKey]any),
		subs:  make(map[int]func(Event)),
	}
}

// defaultStore is the process-wide store used by the package-level
// functions. It is initialized once at startup and never implicitly
// cleared; tests isolate themselves through Reset.
var defaultStore = NewStore()

// DefaultStore returns the process-wide store.
func DefaultStore() *Store {
	return defaultStore
}

// Normalize reduces a type to the class identity used as a store target:
// pointers are indirected until a non-pointer type remains. A nil type
// normalizes to nil.
func Normalize(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// TypeFor returns the normalized class identity for the type parameter.
// It is the usual way to name a class at registration and query sites:
//
//	m := mirror.Decorate(mirror.TypeFor[User](), &Entity{Table: "users"})
func TypeFor[T any]() reflect.Type {
	return Normalize(reflect.TypeOf((*T)(nil)).Elem())
}

// TypeOf returns the normalized class identity of a value, or nil for an
// untyped nil.
func TypeOf(v any) reflect.Type {
	return Normalize(reflect.TypeOf(v))
}

// QualifiedName returns a stable, human-readable identity for a class
// type: the package path and type name for named types, the reflect
// string form otherwise. A nil type yields the empty string.
func QualifiedName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// Define associates value with (key, target), overwriting any prior
// association. Keys of non-comparable types carry no identity and are
// dropped; payload identities used as keys are pointers in practice.
func (s *Store) Define(key, value any, target reflect.Type) {
	target = Normalize(target)
	if key == nil || target == nil || !reflect.TypeOf(key).Comparable() {
		return
	}
	s.mu.Lock()
	s.assoc[assocKey{key: key, target: target}] = value
	s.mu.Unlock()
}

// GetOwn returns the value associated with (key, target) on the target
// itself, ignoring ancestors. The second result reports presence.
func (s *Store) GetOwn(key any, target reflect.Type) (any, bool) {
	target = Normalize(target)
	if key == nil || target == nil || !reflect.TypeOf(key).Comparable() {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.assoc[assocKey{key: key, target: target}]
	return v, ok
}

// Get returns the value associated with (key, target), consulting the
// target's ancestor chain when the target itself has no association. The
// chain is the transitive set of embedded struct field types, walked
// breadth-first in declaration order, so the nearest association wins the
// way Go's own member promotion does. Embedding graphs that reach a type
// through several paths are visited once.
func (s *Store) Get(key any, target reflect.Type) (any, bool) {
	target = Normalize(target)
	if key == nil || target == nil || !reflect.TypeOf(key).Comparable() {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := map[reflect.Type]bool{target: true}
	queue := []reflect.Type{target}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		if v, ok := s.assoc[assocKey{key: key, target: t}]; ok {
			return v, true
		}
		for _, base := range embeddedBases(t) {
			if !visited[base] {
				visited[base] = true
				queue = append(queue, base)
			}
		}
	}
	return nil, false
}

// embeddedBases returns the normalized types of a struct type's anonymous
// fields in declaration order. Non-struct types have no bases.
func embeddedBases(t reflect.Type) []reflect.Type {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var bases []reflect.Type
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if base := Normalize(f.Type); base != nil {
			bases = append(bases, base)
		}
	}
	return bases
}

// Resolve returns the class mirror for a type.
//
// A type that was decorated directly always resolves to the same persisted
// instance. A type with no mirror of its own, but whose embedding chain
// surfaces a registered ancestor, resolves to a new empty mirror whose
// parent link is set to the ancestor's mirror; the ancestor's instance is
// never reused or mutated. A type with no mirror anywhere in its chain
// resolves to a new empty mirror. In both of the latter cases nothing is
// persisted: the returned mirror is a disposable view until an explicit
// decoration call stores it.
func (s *Store) Resolve(t reflect.Type) *ClassMirror {
	t = Normalize(t)

	found, ok := s.Get(classMirrorKey, t)
	if !ok {
		return NewClassMirror()
	}

	cm, ok := found.(*ClassMirror)
	if !ok {
		return NewClassMirror()
	}
	if cm.Target() == t {
		return cm
	}

	// The lookup surfaced an ancestor's mirror: hand back a fresh view
	// linked to it. The link requires a target that differs from ours,
	// which the branch above already guarantees.
	view := NewClassMirror()
	view.parent = cm
	return view
}

// Decorate resolves the mirror for a type, attaches the given metadata
// payloads in order, and persists the mirror under the registry's lookup
// channel and under each payload's own identity for reverse lookup.
// Decoration is idempotent and additive: repeated calls on one type keep
// accumulating metadata on the same stored instance.
//
// Calling Decorate with no payloads registers the class without attaching
// metadata, which is how classes with only member decorations enter the
// store.
func (s *Store) Decorate(t reflect.Type, meta ...any) *ClassMirror {
	t = Normalize(t)
	if t == nil {
		return NewClassMirror()
	}

	cm := s.Resolve(t)
	if cm.Target() == nil {
		// First decoration attaches the mirror; the target and owning
		// store are stable afterwards.
		cm.setTarget(t)
		cm.store = s
	}
	cm.AppendMetadata(meta...)

	s.Define(classMirrorKey, cm, t)
	for _, m := range meta {
		if m != nil {
			s.Define(m, cm, t)
		}
	}

	s.publish(Event{Op: EventOpDecorate, Class: QualifiedName(t)})
	return cm
}

// DecorateMethod registers a method mirror on a class, persisting the
// class mirror if this is the first registration against it. It is the
// method-decorator entry point: resolve, route into the namespace chosen
// by the static flag, store.
func (s *Store) DecorateMethod(t reflect.Type, key string, static bool, meta ...any) *MethodMirror {
	m := NewMethodMirror(key, meta...)
	s.Decorate(t).SetMirror(key, m, static)
	return m
}

// DecorateProperty registers a property mirror on a class, persisting the
// class mirror if this is the first registration against it.
func (s *Store) DecorateProperty(t reflect.Type, key string, static bool, meta ...any) *PropertyMirror {
	p := NewPropertyMirror(key, meta...)
	s.Decorate(t).SetMirror(key, p, static)
	return p
}

// DecorateParameter registers a constructor parameter mirror on a class,
// persisting the class mirror if this is the first registration against
// it.
func (s *Store) DecorateParameter(t reflect.Type, index int, meta ...any) *ParameterMirror {
	p := NewParameterMirror(index, meta...)
	s.Decorate(t).SetParameter(index, p)
	return p
}

// MirrorOfMetadata returns the class mirror that owns the exact metadata
// payload instance, looked up against the given type's chain. This is the
// reverse lookup channel populated by Decorate.
func (s *Store) MirrorOfMetadata(meta any, t reflect.Type) (*ClassMirror, bool) {
	v, ok := s.Get(meta, t)
	if !ok {
		return nil, false
	}
	cm, ok := v.(*ClassMirror)
	return cm, ok
}

// Classes returns the mirrors of every directly decorated class, sorted
// by qualified name for deterministic iteration.
func (s *Store) Classes() []*ClassMirror {
	s.mu.RLock()
	var out []*ClassMirror
	for k, v := range s.assoc {
		if k.key != classMirrorKey {
			continue
		}
		if cm, ok := v.(*ClassMirror); ok && cm.Target() == k.target {
			out = append(out, cm)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return QualifiedName(out[i].Target()) < QualifiedName(out[j].Target())
	})
	return out
}

// Class returns the mirror of a directly decorated class by qualified
// name, or by bare type name when unambiguous.
func (s *Store) Class(name string) (*ClassMirror, bool) {
	var bare *ClassMirror
	bareMatches := 0
	for _, cm := range s.Classes() {
		t := cm.Target()
		if QualifiedName(t) == name {
			return cm, true
		}
		if t.Name() == name {
			bare = cm
			bareMatches++
		}
	}
	if bareMatches == 1 {
		return bare, true
	}
	return nil, false
}

// Reset clears every association in the store (used for testing).
func (s *Store) Reset() {
	s.mu.Lock()
	s.assoc = make(map[assocKey]any)
	s.mu.Unlock()
	s.publish(Event{Op: EventOpReset})
}

// Resolve returns the class mirror for a type from the process-wide store.
func Resolve(t reflect.Type) *ClassMirror {
	return defaultStore.Resolve(t)
}

// Decorate attaches metadata to a class in the process-wide store.
func Decorate(t reflect.Type, meta ...any) *ClassMirror {
	return defaultStore.Decorate(t, meta...)
}

// DecorateMethod registers a method mirror in the process-wide store.
func DecorateMethod(t reflect.Type, key string, static bool, meta ...any) *MethodMirror {
	return defaultStore.DecorateMethod(t, key, static, meta...)
}

// DecorateProperty registers a property mirror in the process-wide store.
func DecorateProperty(t reflect.Type, key string, static bool, meta ...any) *PropertyMirror {
	return defaultStore.DecorateProperty(t, key, static, meta...)
}

// DecorateParameter registers a constructor parameter mirror in the
// process-wide store.
func DecorateParameter(t reflect.Type, index int, meta ...any) *ParameterMirror {
	return defaultStore.DecorateParameter(t, index, meta...)
}

// MirrorOfMetadata performs the reverse payload lookup against the
// process-wide store.
func MirrorOfMetadata(meta any, t reflect.Type) (*ClassMirror, bool) {
	return defaultStore.MirrorOfMetadata(meta, t)
}

// Classes lists the directly decorated classes in the process-wide store.
func Classes() []*ClassMirror {
	return defaultStore.Classes()
}

// Reset clears the process-wide store (used for testing).
func Reset() {
	defaultStore.Reset()
}

func formatIndex(i int) string {
	return strconv.Itoa(i)
}
