package mirror

import "testing"

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindAny, "any"},
		{KindClass, "class"},
		{KindMethod, "method"},
		{KindProperty, "property"},
		{KindParameter, "parameter"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("String(%d): got %s, want %s", int(tt.kind), got, tt.want)
		}
	}
}

func TestParseKind_RoundTrip(t *testing.T) {
	for _, kind := range []Kind{KindAny, KindClass, KindMethod, KindProperty, KindParameter} {
		got, err := ParseKind(kind.String())
		if err != nil {
			t.Fatalf("ParseKind(%s) failed: %v", kind, err)
		}
		if got != kind {
			t.Errorf("ParseKind(%s): got %s, want %s", kind, got, kind)
		}
	}
}

func TestParseKind_Defaults(t *testing.T) {
	got, err := ParseKind("")
	if err != nil || got != KindAny {
		t.Errorf("ParseKind empty: got %s/%v, want any/nil", got, err)
	}

	if _, err := ParseKind("resource"); err == nil {
		t.Error("Expected error for an unknown kind")
	}
}

func TestKind_Matches(t *testing.T) {
	if !KindMethod.matches(KindAny) {
		t.Error("KindAny should match every kind")
	}
	if !KindMethod.matches(KindMethod) {
		t.Error("A kind should match itself")
	}
	if KindMethod.matches(KindProperty) {
		t.Error("Distinct kinds should not match")
	}
}
