package mirror

import (
	"reflect"
)

// ClassMirror describes one registered class: its own class-level metadata,
// its own static and instance member namespaces, its own constructor
// parameter positions, and a link to the mirror of the nearest registered
// ancestor, if one exists.
//
// Own maps never contain ancestor entries; inherited data is obtained only
// by walking the parent link. Static and instance members are disjoint
// namespaces, so one key may exist in both with different mirrors.
type ClassMirror struct {
	DeclarationMirror

	parent     *ClassMirror
	static     *memberList
	instance   *memberList
	parameters map[int]*ParameterMirror

	// store is set once the mirror has been persisted by decoration.
	// Mirrors returned for undecorated classes are disposable views and
	// carry no store.
	store *Store
}

// NewClassMirror creates an empty, unattached class mirror.
func NewClassMirror() *ClassMirror {
	return &ClassMirror{
		static:     newMemberList(),
		instance:   newMemberList(),
		parameters: make(map[int]*ParameterMirror),
	}
}

// Kind returns KindClass.
func (c *ClassMirror) Kind() Kind { return KindClass }

// Parent returns the mirror of the nearest registered ancestor class, or
// nil if this mirror sits at the root of its chain. The link is assigned
// at most once, during resolution, and is stable afterwards.
func (c *ClassMirror) Parent() *ClassMirror { return c.parent }

// SetMirror registers a method or property mirror under the given member
// key, routed into the static or instance namespace by the flag. A prior
// entry for the key in that namespace is overwritten in place. The key and
// namespace are stamped onto the mirror.
//
// Parameter mirrors are never registered here; they live in the separate
// parameter map (SetParameter). Class-level metadata is attached through
// decoration, not through member registration.
func (c *ClassMirror) SetMirror(key string, m Mirror, static bool) {
	if m == nil {
		return
	}
	stampMember(m, key, static)
	if static {
		c.static.set(key, m)
	} else {
		c.instance.set(key, m)
	}
	c.notify(EventOpMemberSet, key)
}

// RemoveMirror deletes the member entry for the key from the chosen
// namespace. Removing an absent key is a silent no-op. Only this class's
// own maps are affected, never an ancestor's.
func (c *ClassMirror) RemoveMirror(key string, static bool) {
	ns := c.instance
	if static {
		ns = c.static
	}
	if _, ok := ns.get(key); !ok {
		return
	}
	ns.remove(key)
	c.notify(EventOpMemberRemove, key)
}

// GetMirror returns this class's own member entry for the key in the
// chosen namespace, if present.
func (c *ClassMirror) GetMirror(key string, static bool) (Mirror, bool) {
	if static {
		return c.static.get(key)
	}
	return c.instance.get(key)
}

// SetParameter registers a parameter mirror for a constructor parameter
// position of this class. Positions are sparse: only decorated positions
// are present, so the map is not a complete arity record. Constructor
// parameters are not considered inheritable; ancestors are never consulted.
func (c *ClassMirror) SetParameter(index int, pm *ParameterMirror) {
	if pm == nil {
		return
	}
	pm.index = index
	c.parameters[index] = pm
	c.notify(EventOpParameterSet, formatIndex(index))
}

// GetParameter returns the parameter mirror registered at the given
// constructor position of this class, if any.
func (c *ClassMirror) GetParameter(index int) (*ParameterMirror, bool) {
	pm, ok := c.parameters[index]
	return pm, ok
}

// GetParameters returns this class's own registered constructor parameter
// mirrors ordered by position.
func (c *ClassMirror) GetParameters() []*ParameterMirror {
	return orderedParameters(c.parameters)
}

// GetMetadata returns this class's own metadata payloads in decoration
// order. Ancestors are not consulted.
func (c *ClassMirror) GetMetadata() []any {
	return c.Metadata()
}

// GetAllMetadata returns this class's own metadata payloads followed by
// the merged payloads of its ancestor chain (current-first concatenation).
// Entries are never deduplicated: every decoration is part of the history.
func (c *ClassMirror) GetAllMetadata() []any {
	out := c.Metadata()
	if c.parent != nil {
		out = append(out, c.parent.GetAllMetadata()...)
	}
	return out
}

// GetMethods returns this class's own instance methods keyed by member
// name.
func (c *ClassMirror) GetMethods() map[string]*MethodMirror {
	return methodsOf(c.instance)
}

// GetStaticMethods returns this class's own static methods keyed by member
// name. Static members are never inherited, so no merged variant exists.
func (c *ClassMirror) GetStaticMethods() map[string]*MethodMirror {
	return methodsOf(c.static)
}

// GetProperties returns this class's own instance properties keyed by
// member name.
func (c *ClassMirror) GetProperties() map[string]*PropertyMirror {
	return propertiesOf(c.instance)
}

// GetStaticProperties returns this class's own static properties keyed by
// member name.
func (c *ClassMirror) GetStaticProperties() map[string]*PropertyMirror {
	return propertiesOf(c.static)
}

// GetInstanceMembers returns this class's own instance members of both
// member kinds, keyed by member name.
func (c *ClassMirror) GetInstanceMembers() map[string]Mirror {
	out := make(map[string]Mirror, c.instance.len())
	for _, m := range c.instance.ordered(KindAny) {
		out[memberName(m)] = m
	}
	return out
}

// GetAllMethods returns the instance methods visible on this class,
// merging the ancestor chain. The merge starts from the ancestor's full
// map and overlays this class's own entries, so an own method under an
// inherited key wins while unrelated inherited keys remain visible.
func (c *ClassMirror) GetAllMethods() map[string]*MethodMirror {
	var out map[string]*MethodMirror
	if c.parent != nil {
		out = c.parent.GetAllMethods()
	} else {
		out = make(map[string]*MethodMirror)
	}
	for name, m := range c.GetMethods() {
		out[name] = m
	}
	return out
}

// GetAllProperties returns the instance properties visible on this class,
// merging the ancestor chain with override semantics.
func (c *ClassMirror) GetAllProperties() map[string]*PropertyMirror {
	var out map[string]*PropertyMirror
	if c.parent != nil {
		out = c.parent.GetAllProperties()
	} else {
		out = make(map[string]*PropertyMirror)
	}
	for name, p := range c.GetProperties() {
		out[name] = p
	}
	return out
}

// GetAllInstanceMembers returns every instance member visible on this
// class, merging the ancestor chain with override semantics.
func (c *ClassMirror) GetAllInstanceMembers() map[string]Mirror {
	var out map[string]Mirror
	if c.parent != nil {
		out = c.parent.GetAllInstanceMembers()
	} else {
		out = make(map[string]Mirror)
	}
	for name, m := range c.GetInstanceMembers() {
		out[name] = m
	}
	return out
}

// GetMirrors returns this class's own member mirrors from the chosen
// namespace in insertion order, filtered by kind. KindAny disables the
// filter.
func (c *ClassMirror) GetMirrors(kind Kind, static bool) []Mirror {
	if static {
		return c.static.ordered(kind)
	}
	return c.instance.ordered(kind)
}

// GetAllMirrors returns member mirrors from the chosen namespace across
// the ancestor chain, ancestor-first, filtered by kind. Entries are
// concatenated, not deduplicated: an overriding member and the member it
// shadows both appear.
//
// The static namespace never walks ancestors; static member inheritance is
// intentionally unsupported, so the static variant returns own entries
// only.
func (c *ClassMirror) GetAllMirrors(kind Kind, static bool) []Mirror {
	if static {
		return c.static.ordered(kind)
	}
	var out []Mirror
	if c.parent != nil {
		out = c.parent.GetAllMirrors(kind, false)
	}
	return append(out, c.instance.ordered(kind)...)
}

// GetDesignParamTypes returns the declared constructor parameter types
// captured for this class by the load-time constructor registration
// mechanism. The list covers the current class only; constructor
// signatures are not inherited and the sparse parameter map is not
// consulted.
func (c *ClassMirror) GetDesignParamTypes() []reflect.Type {
	return DesignParamTypes(c.target)
}

// notify emits a registry change event when this mirror is persisted.
func (c *ClassMirror) notify(op EventOp, key string) {
	if c.store == nil {
		return
	}
	c.store.publish(Event{Op: op, Class: QualifiedName(c.target), Key: key})
}

func methodsOf(ns *memberList) map[string]*MethodMirror {
	out := make(map[string]*MethodMirror)
	for _, m := range ns.ordered(KindMethod) {
		if mm, ok := m.(*MethodMirror); ok {
			out[mm.Name()] = mm
		}
	}
	return out
}

func propertiesOf(ns *memberList) map[string]*PropertyMirror {
	out := make(map[string]*PropertyMirror)
	for _, m := range ns.ordered(KindProperty) {
		if pm, ok := m.(*PropertyMirror); ok {
			out[pm.Name()] = pm
		}
	}
	return out
}

// IsStaticMember reports whether key names a member that lives on the
// class type itself rather than on the instance shape.
//
// In this registry's Go binding, a name lives on the type itself when it
// resolves to a method on the type or its pointer type: methods hang off
// the type declaration and are enumerable without an instance. Names that
// resolve only to struct fields belong to the instance shape. Promoted
// methods of embedded types are part of the flat Go method set and count
// as the type's own.
//
// Class-like targets (reflect.Type) are checked directly; instance-like
// targets are redirected to their type. Anything else reports false. The
// helper is pure classification: member registration routes namespaces by
// its explicit flag and never consults this check internally.
func IsStaticMember(target any, key string) bool {
	if target == nil || key == "" {
		return false
	}
	if t, ok := target.(reflect.Type); ok {
		return typeHasMethod(t, key)
	}
	rt := reflect.TypeOf(target)
	if rt == nil {
		return false
	}
	return typeHasMethod(rt, key)
}

func typeHasMethod(t reflect.Type, key string) bool {
	if t == nil {
		return false
	}
	if _, ok := t.MethodByName(key); ok {
		return true
	}
	if t.Kind() != reflect.Pointer {
		if _, ok := reflect.PointerTo(t).MethodByName(key); ok {
			return true
		}
	}
	return false
}
