package voices

import "testing"

func TestCatalog(t *testing.T) {
	got := Catalog()
	if len(got) != 7 {
		t.Fatalf("expected 7 voices, got %d", len(got))
	}
	got[0].Name = "mutated"
	if Catalog()[0].Name == "mutated" {
		t.Fatalf("catalog must not be mutable through a returned copy")
	}
}

func TestLookup(t *testing.T) {
	cases := []struct {
		id       string
		wantName string
		wantDesc string
		ok       bool
	}{
		{"vidya", "Vidya", "Indian Female", true},
		{" Hitesh ", "Hitesh", "Indian Male", true},
		{"karun", "Karun", "Indian Male", true},
		{"nobody", "", "", false},
	}
	for _, tc := range cases {
		v, ok := Lookup(tc.id)
		if ok != tc.ok || v.Name != tc.wantName || v.Description != tc.wantDesc {
			t.Fatalf("Lookup(%q) = %+v, %v", tc.id, v, ok)
		}
	}
	if v, _ := Lookup("arya"); v.AudioFile != "/voices/arya.wav" {
		t.Fatalf("unexpected audio file %q", v.AudioFile)
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := parse([]byte("voices:\n  - {id: a, name: A}\n  - {id: a, name: B}\n"))
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
