package session

import "testing"

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager()

	s1 := m.GetOrCreate("")
	if s1.ID == "" {
		t.Fatal("new session must get an ID")
	}
	s2 := m.GetOrCreate(s1.ID)
	if s2 != s1 {
		t.Error("same ID must return the same session")
	}

	s3 := m.GetOrCreate("client-chosen")
	if s3.ID != "client-chosen" {
		t.Errorf("client-supplied ID must be kept, got %q", s3.ID)
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", m.Len())
	}
}

func TestManager_MemoryPersistsAcrossLookups(t *testing.T) {
	m := NewManager()
	s := m.GetOrCreate("")
	s.Memory.Append("hello", "hi")

	again := m.GetOrCreate(s.ID)
	if again.Memory.Len() != 2 {
		t.Errorf("expected 2 messages, got %d", again.Memory.Len())
	}
}
