package mirror

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SnapshotVersion is the current snapshot schema version.
const SnapshotVersion = "1.0"

// Snapshot is a serializable export of a declaration metadata store. It
// captures every directly decorated class with its payloads, member
// namespaces, parameter positions, and parent link, in a form tooling can
// consume without the original Go types. Classes are ordered by qualified
// name so exports diff cleanly.
type Snapshot struct {
	ID        string          `json:"id"`        // Unique snapshot identifier
	Version   string          `json:"version"`   // Schema version for evolution
	Generated time.Time       `json:"generated"` // Timestamp of export
	Classes   []ClassSnapshot `json:"classes"`   // All decorated classes
}

// ClassSnapshot captures one decorated class.
type ClassSnapshot struct {
	Name       string              `json:"name"`                  // Bare type name
	Package    string              `json:"package,omitempty"`     // Package path
	Qualified  string              `json:"qualified"`             // Package-qualified name
	Parent     string              `json:"parent,omitempty"`      // Qualified name of the parent mirror's class
	Metadata   []PayloadSnapshot   `json:"metadata,omitempty"`    // Class-level payloads, decoration order
	Members    []MemberSnapshot    `json:"members,omitempty"`     // Own members, both namespaces
	Parameters []ParameterSnapshot `json:"parameters,omitempty"`  // Constructor parameter positions
	ParamTypes []string            `json:"param_types,omitempty"` // Declared constructor parameter types
}

// MemberSnapshot captures one own member entry.
type MemberSnapshot struct {
	Name       string              `json:"name"`
	Kind       string              `json:"kind"` // "method" or "property"
	Static     bool                `json:"static,omitempty"`
	Metadata   []PayloadSnapshot   `json:"metadata,omitempty"`
	Parameters []ParameterSnapshot `json:"parameters,omitempty"` // Method parameter positions
}

// ParameterSnapshot captures one decorated parameter position.
type ParameterSnapshot struct {
	Index    int               `json:"index"`
	Metadata []PayloadSnapshot `json:"metadata,omitempty"`
}

// PayloadSnapshot carries one metadata payload as raw JSON together with
// its Go type name. The registry is payload-agnostic, so this is the only
// form a payload survives export in.
type PayloadSnapshot struct {
	TypeName string          `json:"type"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// Export serializes the store into a snapshot document.
func (s *Store) Export() (*Snapshot, error) {
	snap := &Snapshot{
		ID:        uuid.NewString(),
		Version:   SnapshotVersion,
		Generated: time.Now().UTC(),
		Classes:   make([]ClassSnapshot, 0),
	}

	for _, cm := range s.Classes() {
		cs, err := exportClass(cm)
		if err != nil {
			return nil, err
		}
		snap.Classes = append(snap.Classes, cs)
	}
	return snap, nil
}

// Export serializes the process-wide store into a snapshot document.
func Export() (*Snapshot, error) {
	return defaultStore.Export()
}

func exportClass(cm *ClassMirror) (ClassSnapshot, error) {
	t := cm.Target()
	cs := ClassSnapshot{
		Name:      t.Name(),
		Package:   t.PkgPath(),
		Qualified: QualifiedName(t),
	}
	if p := cm.Parent(); p != nil {
		cs.Parent = QualifiedName(p.Target())
	}

	var err error
	if cs.Metadata, err = exportPayloads(cm.GetMetadata()); err != nil {
		return cs, fmt.Errorf("export class %s: %w", cs.Qualified, err)
	}

	for _, m := range cm.GetMirrors(KindAny, false) {
		ms, err := exportMember(m)
		if err != nil {
			return cs, fmt.Errorf("export class %s: %w", cs.Qualified, err)
		}
		cs.Members = append(cs.Members, ms)
	}
	for _, m := range cm.GetMirrors(KindAny, true) {
		ms, err := exportMember(m)
		if err != nil {
			return cs, fmt.Errorf("export class %s: %w", cs.Qualified, err)
		}
		cs.Members = append(cs.Members, ms)
	}

	for _, pm := range cm.GetParameters() {
		ps, err := exportParameter(pm)
		if err != nil {
			return cs, fmt.Errorf("export class %s: %w", cs.Qualified, err)
		}
		cs.Parameters = append(cs.Parameters, ps)
	}

	for _, pt := range cm.GetDesignParamTypes() {
		cs.ParamTypes = append(cs.ParamTypes, pt.String())
	}
	return cs, nil
}

func exportMember(m Mirror) (MemberSnapshot, error) {
	ms := MemberSnapshot{Name: memberName(m), Kind: m.Kind().String()}

	var err error
	if ms.Metadata, err = exportPayloads(m.Metadata()); err != nil {
		return ms, fmt.Errorf("member %s: %w", ms.Name, err)
	}

	switch v := m.(type) {
	case *MethodMirror:
		ms.Static = v.IsStatic()
		for _, pm := range v.Parameters() {
			ps, err := exportParameter(pm)
			if err != nil {
				return ms, fmt.Errorf("member %s: %w", ms.Name, err)
			}
			ms.Parameters = append(ms.Parameters, ps)
		}
	case *PropertyMirror:
		ms.Static = v.IsStatic()
	}
	return ms, nil
}

func exportParameter(pm *ParameterMirror) (ParameterSnapshot, error) {
	ps := ParameterSnapshot{Index: pm.Index()}

	var err error
	if ps.Metadata, err = exportPayloads(pm.Metadata()); err != nil {
		return ps, fmt.Errorf("parameter %d: %w", ps.Index, err)
	}
	return ps, nil
}

func exportPayloads(metas []any) ([]PayloadSnapshot, error) {
	if len(metas) == 0 {
		return nil, nil
	}
	out := make([]PayloadSnapshot, 0, len(metas))
	for _, meta := range metas {
		p := PayloadSnapshot{TypeName: fmt.Sprintf("%T", meta)}
		value, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("marshal payload %s: %w", p.TypeName, err)
		}
		p.Value = value
		out = append(out, p)
	}
	return out, nil
}

// LoadSnapshot decodes a snapshot document from a reader.
func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version == "" {
		return nil, fmt.Errorf("snapshot has no version")
	}
	return &snap, nil
}

// ReadSnapshotFile reads and decodes a snapshot document from a file.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return LoadSnapshot(f)
}

// WriteTo encodes the snapshot as indented JSON.
func (snap *Snapshot) WriteTo(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// WriteFile writes the snapshot as indented JSON to a file.
func (snap *Snapshot) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()
	return snap.WriteTo(f)
}

// Class finds a class snapshot by qualified name, or by bare name when
// exactly one class carries it.
func (snap *Snapshot) Class(name string) (*ClassSnapshot, bool) {
	var bare *ClassSnapshot
	bareMatches := 0
	for i := range snap.Classes {
		c := &snap.Classes[i]
		if c.Qualified == name {
			return c, true
		}
		if c.Name == name {
			bare = c
			bareMatches++
		}
	}
	if bareMatches == 1 {
		return bare, true
	}
	return nil, false
}

// Ancestry returns the parent chain of a class within the snapshot,
// nearest ancestor first. Parents referencing classes missing from the
// snapshot terminate the chain.
func (snap *Snapshot) Ancestry(c *ClassSnapshot) []*ClassSnapshot {
	var chain []*ClassSnapshot
	seen := map[string]bool{c.Qualified: true}
	for cur := c; cur.Parent != ""; {
		next, ok := snap.Class(cur.Parent)
		if !ok || seen[next.Qualified] {
			break
		}
		seen[next.Qualified] = true
		chain = append(chain, next)
		cur = next
	}
	return chain
}

// MergedMembers returns a class's instance members merged across its
// ancestry, ancestor-first, mirroring the registry's merged mirror-list
// semantics: overriding members and the members they shadow both appear.
// Static members never merge; the static variant returns own entries only.
func (snap *Snapshot) MergedMembers(c *ClassSnapshot, static bool) []MemberSnapshot {
	if static {
		return filterMembers(c.Members, static)
	}

	chain := snap.Ancestry(c)
	var out []MemberSnapshot
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, filterMembers(chain[i].Members, false)...)
	}
	return append(out, filterMembers(c.Members, false)...)
}

// EffectiveMembers reduces a merged instance member list to override
// semantics: one entry per name, the nearest declaration winning.
func EffectiveMembers(members []MemberSnapshot) []MemberSnapshot {
	byName := make(map[string]int)
	var out []MemberSnapshot
	for _, m := range members {
		if i, ok := byName[m.Name]; ok {
			out[i] = m
			continue
		}
		byName[m.Name] = len(out)
		out = append(out, m)
	}
	return out
}

// MergedMetadata returns a class's metadata payloads merged across its
// ancestry, current-first, with no deduplication.
func (snap *Snapshot) MergedMetadata(c *ClassSnapshot) []PayloadSnapshot {
	out := append([]PayloadSnapshot(nil), c.Metadata...)
	for _, ancestor := range snap.Ancestry(c) {
		out = append(out, ancestor.Metadata...)
	}
	return out
}

func filterMembers(members []MemberSnapshot, static bool) []MemberSnapshot {
	var out []MemberSnapshot
	for _, m := range members {
		if m.Static == static {
			out = append(out, m)
		}
	}
	return out
}

// sortClasses orders class snapshots by qualified name. Exports produce
// sorted documents already; loads from external sources may not.
func sortClasses(classes []ClassSnapshot) {
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Qualified < classes[j].Qualified
	})
}

// Normalize sorts the snapshot's classes by qualified name in place and
// returns the snapshot for chaining.
func (snap *Snapshot) Normalize() *Snapshot {
	sortClasses(snap.Classes)
	return snap
}
