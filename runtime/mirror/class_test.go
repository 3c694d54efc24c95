package mirror

import (
	"testing"
)

func TestSetMirror_NamespacesAreDisjoint(t *testing.T) {
	defer Reset()

	cm := Decorate(TypeFor[record]())
	instance := NewMethodMirror("hook")
	static := NewMethodMirror("hook")
	cm.SetMirror("hook", instance, false)
	cm.SetMirror("hook", static, true)

	methods := cm.GetMethods()
	statics := cm.GetStaticMethods()

	if got, ok := methods["hook"]; !ok || got != instance {
		t.Error("Instance namespace should hold the instance mirror")
	}
	if got, ok := statics["hook"]; !ok || got != static {
		t.Error("Static namespace should hold the static mirror")
	}
	if len(methods) != 1 || len(statics) != 1 {
		t.Errorf("Namespace sizes: got %d/%d, want 1/1", len(methods), len(statics))
	}
}

func TestSetMirror_OverwriteKeepsPosition(t *testing.T) {
	defer Reset()

	cm := Decorate(TypeFor[record]())
	cm.SetMirror("a", NewPropertyMirror("a"), false)
	cm.SetMirror("b", NewPropertyMirror("b"), false)

	replacement := NewPropertyMirror("a")
	cm.SetMirror("a", replacement, false)

	got := cm.GetMirrors(KindAny, false)
	if len(got) != 2 {
		t.Fatalf("Mirror count: got %d, want 2", len(got))
	}
	if got[0] != replacement {
		t.Error("Overwriting should keep the entry's original position")
	}
	if p, ok := got[1].(*PropertyMirror); !ok || p.Name() != "b" {
		t.Error("Unrelated entries should keep their order")
	}
}

func TestSetMirror_StampsNameAndNamespace(t *testing.T) {
	defer Reset()

	cm := Decorate(TypeFor[record]())
	m := NewMethodMirror("declared")
	cm.SetMirror("actual", m, true)

	if m.Name() != "actual" {
		t.Errorf("Name: got %s, want actual", m.Name())
	}
	if !m.IsStatic() {
		t.Error("Static flag should be stamped onto the mirror")
	}
}

func TestRemoveMirror(t *testing.T) {
	defer Reset()

	cm := Decorate(TypeFor[record]())
	cm.SetMirror("name", NewPropertyMirror("name"), false)

	cm.RemoveMirror("name", true) // wrong namespace
	if _, ok := cm.GetMirror("name", false); !ok {
		t.Fatal("Static removal must not touch the instance namespace")
	}

	cm.RemoveMirror("name", false)
	if _, ok := cm.GetMirror("name", false); ok {
		t.Error("Member should be removed")
	}

	// Removing an absent key is a silent no-op.
	cm.RemoveMirror("name", false)
}

func TestRemoveMirror_NeverTouchesAncestor(t *testing.T) {
	defer Reset()

	base := Decorate(TypeFor[record]())
	base.SetMirror("name", NewPropertyMirror("name"), false)

	Resolve(TypeFor[user]()).RemoveMirror("name", false)

	if _, ok := base.GetMirror("name", false); !ok {
		t.Error("Removal on a subclass must not affect the ancestor")
	}
}

func TestParameters_SparseAndOrdered(t *testing.T) {
	defer Reset()

	cm := Decorate(TypeFor[record]())
	cm.SetParameter(2, NewParameterMirror(2, &columnMeta{Name: "age"}))
	cm.SetParameter(0, NewParameterMirror(0, &columnMeta{Name: "name"}))

	if _, ok := cm.GetParameter(1); ok {
		t.Error("Undecorated position should be absent")
	}
	if _, ok := cm.GetParameter(0); !ok {
		t.Error("Decorated position should be present")
	}

	params := cm.GetParameters()
	if len(params) != 2 {
		t.Fatalf("Parameter count: got %d, want 2", len(params))
	}
	if params[0].Index() != 0 || params[1].Index() != 2 {
		t.Error("Parameters should be ordered by position")
	}
}

func TestSetParameter_StampsIndex(t *testing.T) {
	defer Reset()

	cm := Decorate(TypeFor[record]())
	pm := NewParameterMirror(9)
	cm.SetParameter(0, pm)

	if pm.Index() != 0 {
		t.Errorf("Index: got %d, want 0", pm.Index())
	}
}

func TestParameters_NotInherited(t *testing.T) {
	defer Reset()

	base := Decorate(TypeFor[record]())
	base.SetParameter(0, NewParameterMirror(0))

	sub := Decorate(TypeFor[user]())
	if len(sub.GetParameters()) != 0 {
		t.Error("Constructor parameters must not be inherited")
	}
	if _, ok := sub.GetParameter(0); ok {
		t.Error("GetParameter must not consult the ancestor")
	}
}

func TestMethodMirror_Parameters(t *testing.T) {
	m := NewMethodMirror("save")
	m.SetParameter(1, NewParameterMirror(1, &columnMeta{Name: "ctx"}))
	m.SetParameter(0, NewParameterMirror(0))

	if _, ok := m.GetParameter(2); ok {
		t.Error("Undecorated position should be absent")
	}

	params := m.Parameters()
	if len(params) != 2 || params[0].Index() != 0 || params[1].Index() != 1 {
		t.Error("Method parameters should be ordered by position")
	}
}

func TestGetAllMetadata_CurrentFirstConcatenation(t *testing.T) {
	defer Reset()

	r1 := &entityMeta{Role: "r1"}
	r2 := &entityMeta{Role: "r2"}
	u1 := &entityMeta{Role: "u1"}
	Decorate(TypeFor[record](), r1, r2)
	sub := Decorate(TypeFor[user](), u1)

	all := sub.GetAllMetadata()
	if len(all) != 3 {
		t.Fatalf("Merged metadata count: got %d, want 3", len(all))
	}
	if all[0] != u1 || all[1] != r1 || all[2] != r2 {
		t.Errorf("Merged order: got %v, want [u1 r1 r2]", all)
	}
}

func TestGetAllMetadata_KeepsDuplicates(t *testing.T) {
	defer Reset()

	shared := &entityMeta{Role: "shared"}
	Decorate(TypeFor[record](), shared)
	sub := Decorate(TypeFor[user](), shared)

	if got := len(sub.GetAllMetadata()); got != 2 {
		t.Errorf("Merged metadata count: got %d, want 2", got)
	}
}

func TestGetAllInstanceMembers_OverrideSemantics(t *testing.T) {
	defer Reset()

	baseName := NewPropertyMirror("name")
	baseID := NewPropertyMirror("id")
	base := Decorate(TypeFor[record]())
	base.SetMirror("name", baseName, false)
	base.SetMirror("id", baseID, false)

	own := NewPropertyMirror("name")
	sub := Decorate(TypeFor[user]())
	sub.SetMirror("name", own, false)

	members := sub.GetAllInstanceMembers()
	if len(members) != 2 {
		t.Fatalf("Member count: got %d, want 2", len(members))
	}
	if members["name"] != own {
		t.Error("Subclass member should win over the inherited one")
	}
	if members["id"] != baseID {
		t.Error("Unrelated inherited members should remain visible")
	}
}

func TestGetAllMethods_MergeAcrossChain(t *testing.T) {
	defer Reset()

	baseSave := NewMethodMirror("save")
	base := Decorate(TypeFor[record]())
	base.SetMirror("save", baseSave, false)
	base.SetMirror("load", NewMethodMirror("load"), false)

	ownSave := NewMethodMirror("save")
	sub := Decorate(TypeFor[user]())
	sub.SetMirror("save", ownSave, false)

	merged := sub.GetAllMethods()
	if len(merged) != 2 {
		t.Fatalf("Merged method count: got %d, want 2", len(merged))
	}
	if merged["save"] != ownSave {
		t.Error("Override should win in the merged method map")
	}

	// Own queries stay own.
	if len(sub.GetMethods()) != 1 {
		t.Error("Own method map should hold only own entries")
	}
	if base.GetMethods()["save"] != baseSave {
		t.Error("Base method map changed during subclass registration")
	}
}

func TestStaticMembers_NeverInherited(t *testing.T) {
	defer Reset()

	base := Decorate(TypeFor[record]())
	base.SetMirror("build", NewMethodMirror("build"), true)

	sub := Decorate(TypeFor[user]())

	if len(sub.GetStaticMethods()) != 0 {
		t.Error("Static methods must not be inherited")
	}
	if got := sub.GetAllMirrors(KindAny, true); len(got) != 0 {
		t.Errorf("Static mirror query: got %d entries, want 0", len(got))
	}
	if len(base.GetStaticMethods()) != 1 {
		t.Error("Base should keep its own static method")
	}
}

func TestGetAllMirrors_AncestorFirstWithShadows(t *testing.T) {
	defer Reset()

	baseName := NewPropertyMirror("name")
	base := Decorate(TypeFor[record]())
	base.SetMirror("name", baseName, false)

	ownName := NewPropertyMirror("name")
	ownEmail := NewPropertyMirror("email")
	sub := Decorate(TypeFor[user]())
	sub.SetMirror("name", ownName, false)
	sub.SetMirror("email", ownEmail, false)

	got := sub.GetAllMirrors(KindAny, false)
	if len(got) != 3 {
		t.Fatalf("Mirror count: got %d, want 3", len(got))
	}
	if got[0] != baseName || got[1] != ownName || got[2] != ownEmail {
		t.Error("Merged mirrors should be ancestor-first with shadows kept")
	}
}

func TestGetMirrors_KindFilter(t *testing.T) {
	defer Reset()

	cm := Decorate(TypeFor[record]())
	save := NewMethodMirror("save")
	name := NewPropertyMirror("name")
	cm.SetMirror("save", save, false)
	cm.SetMirror("name", name, false)

	methods := cm.GetMirrors(KindMethod, false)
	if len(methods) != 1 || methods[0] != save {
		t.Error("Kind filter should select methods only")
	}

	props := cm.GetMirrors(KindProperty, false)
	if len(props) != 1 || props[0] != name {
		t.Error("Kind filter should select properties only")
	}

	all := cm.GetMirrors(KindAny, false)
	if len(all) != 2 || all[0] != save || all[1] != name {
		t.Error("KindAny should return every member in insertion order")
	}
}

func TestGetInstanceMembers_BothKinds(t *testing.T) {
	defer Reset()

	cm := Decorate(TypeFor[record]())
	cm.SetMirror("save", NewMethodMirror("save"), false)
	cm.SetMirror("name", NewPropertyMirror("name"), false)
	cm.SetMirror("build", NewMethodMirror("build"), true)

	members := cm.GetInstanceMembers()
	if len(members) != 2 {
		t.Fatalf("Instance member count: got %d, want 2", len(members))
	}
	if _, ok := members["build"]; ok {
		t.Error("Static members must not appear in the instance namespace")
	}
}

func TestInheritance_DeepChain(t *testing.T) {
	defer Reset()

	root := Decorate(TypeFor[record](), &entityMeta{Role: "root"})
	root.SetMirror("id", NewPropertyMirror("id"), false)

	mid := Decorate(TypeFor[user](), &entityMeta{Role: "mid"})
	mid.SetMirror("name", NewPropertyMirror("name"), false)

	leaf := Decorate(TypeFor[admin](), &entityMeta{Role: "leaf"})

	if leaf.Parent() != mid || mid.Parent() != root {
		t.Fatal("Chain should link leaf to mid to root")
	}

	if got := len(leaf.GetAllMetadata()); got != 3 {
		t.Errorf("Merged metadata count: got %d, want 3", got)
	}

	props := leaf.GetAllProperties()
	if len(props) != 2 {
		t.Fatalf("Merged property count: got %d, want 2", len(props))
	}
	for _, key := range []string{"id", "name"} {
		if _, ok := props[key]; !ok {
			t.Errorf("Merged properties missing %q", key)
		}
	}
	if len(leaf.GetProperties()) != 0 {
		t.Error("Leaf own properties should stay empty")
	}
}

func TestMetadataOf_FiltersByType(t *testing.T) {
	defer Reset()

	entity := &entityMeta{Role: "entity"}
	column := &columnMeta{Name: "name"}
	cm := Decorate(TypeFor[record](), entity, column)

	entities := MetadataOf[*entityMeta](cm)
	if len(entities) != 1 || entities[0] != entity {
		t.Error("MetadataOf should select payloads of the requested type")
	}

	columns := MetadataOf[*columnMeta](cm)
	if len(columns) != 1 || columns[0] != column {
		t.Error("MetadataOf should select the column payload")
	}

	if got := MetadataOf[string](cm); len(got) != 0 {
		t.Errorf("Unrelated type filter: got %d entries, want 0", len(got))
	}
}

func TestMetadata_ReturnsCopy(t *testing.T) {
	defer Reset()

	cm := Decorate(TypeFor[record](), &entityMeta{Role: "entity"})

	metas := cm.GetMetadata()
	metas[0] = nil

	if cm.GetMetadata()[0] == nil {
		t.Error("Mutating a returned slice must not affect the mirror")
	}
}

func TestIsStaticMember(t *testing.T) {
	tests := []struct {
		name   string
		target any
		key    string
		want   bool
	}{
		{"method on type", TypeFor[record](), "Schema", true},
		{"promoted method", TypeFor[user](), "Schema", true},
		{"pointer receiver method", TypeFor[user](), "Rename", true},
		{"field is instance shape", user{}, "Name", false},
		{"instance redirected to type", &user{}, "Rename", true},
		{"unknown key", user{}, "Missing", false},
		{"nil target", nil, "Schema", false},
		{"empty key", user{}, "", false},
		{"non-struct target", 42, "Schema", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStaticMember(tt.target, tt.key); got != tt.want {
				t.Errorf("IsStaticMember(%v, %q): got %v, want %v", tt.target, tt.key, got, tt.want)
			}
		})
	}
}

func TestDecorateMember_Convenience(t *testing.T) {
	defer Reset()

	mm := DecorateMethod(TypeFor[record](), "save", false, &routeMeta{Path: "/records"})
	pm := DecorateProperty(TypeFor[record](), "name", true, &columnMeta{Name: "name"})
	par := DecorateParameter(TypeFor[record](), 0, &columnMeta{Name: "id"})

	cm := Resolve(TypeFor[record]())
	if got, ok := cm.GetMirror("save", false); !ok || got != mm {
		t.Error("DecorateMethod should register into the instance namespace")
	}
	if got, ok := cm.GetMirror("name", true); !ok || got != pm {
		t.Error("DecorateProperty should honor the static flag")
	}
	if got, ok := cm.GetParameter(0); !ok || got != par {
		t.Error("DecorateParameter should register the position")
	}
	if len(mm.Metadata()) != 1 || len(pm.Metadata()) != 1 || len(par.Metadata()) != 1 {
		t.Error("Member payloads should be attached at registration")
	}
}
