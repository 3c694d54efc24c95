package mirror

import (
	"reflect"
	"sort"
)

// Mirror is the common surface of every declaration mirror.
// A mirror describes one declared program entity (a class, a method, a
// property, or a parameter position) together with the metadata payloads
// attached to it at registration time.
type Mirror interface {
	// Kind returns the mirror's kind tag for filtered queries.
	Kind() Kind

	// Target returns the class type this mirror was registered against,
	// or nil if the mirror has not been attached yet.
	Target() reflect.Type

	// Metadata returns the attached metadata payloads in registration order.
	// The returned slice is a copy.
	Metadata() []any
}

// DeclarationMirror is the base envelope shared by all mirrors: a target
// type plus an ordered collection of metadata payloads. Payload shapes are
// opaque to the registry; multiple payloads of different shapes may coexist
// on one declaration.
type DeclarationMirror struct {
	target   reflect.Type
	metadata []any
}

// Target returns the class type this mirror describes.
// It is set when the mirror is attached via decoration and is stable
// afterwards.
func (d *DeclarationMirror) Target() reflect.Type {
	return d.target
}

// Metadata returns a copy of the attached payloads in registration order.
func (d *DeclarationMirror) Metadata() []any {
	out := make([]any, len(d.metadata))
	copy(out, d.metadata)
	return out
}

// AppendMetadata attaches payloads to this declaration, preserving
// registration order. Payloads are accepted opaquely; no shape validation
// is performed.
func (d *DeclarationMirror) AppendMetadata(meta ...any) {
	d.metadata = append(d.metadata, meta...)
}

// setTarget records the class type. Called once during decoration.
func (d *DeclarationMirror) setTarget(t reflect.Type) {
	d.target = t
}

// MetadataOf returns the payloads of type T attached to a mirror, in
// registration order. Payloads of other shapes are skipped, never reported
// as errors: misuse surfaces as missing data at query time.
func MetadataOf[T any](m Mirror) []T {
	var out []T
	for _, meta := range m.Metadata() {
		if v, ok := meta.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// MethodMirror describes one method declaration and its metadata.
// ClassMirror stores method mirrors opaquely as member entries; the name
// and namespace flag are stamped at registration time.
type MethodMirror struct {
	DeclarationMirror
	name       string
	static     bool
	parameters map[int]*ParameterMirror
}

// NewMethodMirror creates a method mirror with the given declared name and
// optional metadata payloads.
func NewMethodMirror(name string, meta ...any) *MethodMirror {
	m := &MethodMirror{name: name}
	m.AppendMetadata(meta...)
	return m
}

// Kind returns KindMethod.
func (m *MethodMirror) Kind() Kind { return KindMethod }

// Name returns the declared member name this mirror is registered under.
func (m *MethodMirror) Name() string { return m.name }

// IsStatic reports whether the mirror lives in the static namespace of its
// class. The flag is stamped by ClassMirror.SetMirror.
func (m *MethodMirror) IsStatic() bool { return m.static }

// SetParameter registers a parameter mirror for the given position of this
// method. Positions are sparse: only decorated positions are present.
func (m *MethodMirror) SetParameter(index int, pm *ParameterMirror) {
	if pm == nil {
		return
	}
	if m.parameters == nil {
		m.parameters = make(map[int]*ParameterMirror)
	}
	pm.index = index
	m.parameters[index] = pm
}

// GetParameter returns the parameter mirror at the given position, if any.
func (m *MethodMirror) GetParameter(index int) (*ParameterMirror, bool) {
	pm, ok := m.parameters[index]
	return pm, ok
}

// Parameters returns the registered parameter mirrors ordered by position.
func (m *MethodMirror) Parameters() []*ParameterMirror {
	return orderedParameters(m.parameters)
}

// PropertyMirror describes one property declaration and its metadata.
type PropertyMirror struct {
	DeclarationMirror
	name   string
	static bool
}

// NewPropertyMirror creates a property mirror with the given declared name
// and optional metadata payloads.
func NewPropertyMirror(name string, meta ...any) *PropertyMirror {
	p := &PropertyMirror{name: name}
	p.AppendMetadata(meta...)
	return p
}

// Kind returns KindProperty.
func (p *PropertyMirror) Kind() Kind { return KindProperty }

// Name returns the declared member name this mirror is registered under.
func (p *PropertyMirror) Name() string { return p.name }

// IsStatic reports whether the mirror lives in the static namespace of its
// class.
func (p *PropertyMirror) IsStatic() bool { return p.static }

// ParameterMirror describes one decorated parameter position.
type ParameterMirror struct {
	DeclarationMirror
	index int
}

// NewParameterMirror creates a parameter mirror for the given position with
// optional metadata payloads.
func NewParameterMirror(index int, meta ...any) *ParameterMirror {
	p := &ParameterMirror{index: index}
	p.AppendMetadata(meta...)
	return p
}

// Kind returns KindParameter.
func (p *ParameterMirror) Kind() Kind { return KindParameter }

// Index returns the parameter position this mirror is registered under.
func (p *ParameterMirror) Index() int { return p.index }

// memberName returns the key a member mirror is registered under, for
// mirrors that carry one.
func memberName(m Mirror) string {
	switch v := m.(type) {
	case *MethodMirror:
		return v.name
	case *PropertyMirror:
		return v.name
	default:
		return ""
	}
}

// stampMember records the registration key and namespace on a member
// mirror so the entry and its mirror never disagree.
func stampMember(m Mirror, key string, static bool) {
	switch v := m.(type) {
	case *MethodMirror:
		v.name = key
		v.static = static
	case *PropertyMirror:
		v.name = key
		v.static = static
	}
}

// memberList is an insertion-ordered member namespace. Re-registering an
// existing key overwrites the entry but keeps its original position,
// matching decoration application order.
type memberList struct {
	names   []string
	entries map[string]Mirror
}

func newMemberList() *memberList {
	return &memberList{entries: make(map[string]Mirror)}
}

func (l *memberList) set(name string, m Mirror) {
	if _, exists := l.entries[name]; !exists {
		l.names = append(l.names, name)
	}
	l.entries[name] = m
}

func (l *memberList) remove(name string) {
	if _, exists := l.entries[name]; !exists {
		return
	}
	delete(l.entries, name)
	for i, n := range l.names {
		if n == name {
			l.names = append(l.names[:i], l.names[i+1:]...)
			break
		}
	}
}

func (l *memberList) get(name string) (Mirror, bool) {
	m, ok := l.entries[name]
	return m, ok
}

func (l *memberList) len() int {
	return len(l.entries)
}

// ordered returns the entries in insertion order, filtered by kind.
func (l *memberList) ordered(filter Kind) []Mirror {
	out := make([]Mirror, 0, len(l.names))
	for _, name := range l.names {
		m := l.entries[name]
		if m.Kind().matches(filter) {
			out = append(out, m)
		}
	}
	return out
}

// orderedParameters returns parameter mirrors sorted by position.
func orderedParameters(params map[int]*ParameterMirror) []*ParameterMirror {
	indexes := make([]int, 0, len(params))
	for i := range params {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]*ParameterMirror, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, params[i])
	}
	return out
}
