package units

import (
	"reflect"
	"testing"
)

func TestMapOrderAndReplace(t *testing.T) {
	m := New()
	m.Set("b", "2")
	m.Set("a", "1")
	m.Set("b", "updated")

	if got := m.Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("Keys = %v, want [b a]", got)
	}
	if v, _ := m.Get("b"); v != "updated" {
		t.Fatalf("Get(b) = %q, want updated", v)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
}

func TestMapDelete(t *testing.T) {
	m := New()
	m.Set("a", "1")
	m.Set("b", "2")
	m.Set("c", "3")
	m.Delete("b")
	m.Delete("missing") // no-op

	if got := m.Keys(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("Keys after delete = %v, want [a c]", got)
	}
	if m.Has("b") {
		t.Fatal("deleted key still present")
	}
}

func TestMapClone(t *testing.T) {
	m := New()
	m.Set("a", "1")
	c := m.Clone()
	c.Set("a", "changed")
	c.Set("b", "new")

	if v, _ := m.Get("a"); v != "1" {
		t.Fatalf("original mutated through clone: a = %q", v)
	}
	if m.Has("b") {
		t.Fatal("original gained key from clone")
	}
}
