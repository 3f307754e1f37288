package ids

import "testing"

func TestGenerateMonotonic(t *testing.T) {
	prev := Generate()
	for i := 0; i < 5000; i++ {
		id := Generate()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d (iteration %d)", id, prev, i)
		}
		prev = id
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[int64]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := Generate()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d at iteration %d", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestSetNodeID(t *testing.T) {
	SetNodeID(42)
	id := Generate()
	if node := (id >> 12) & 0x3FF; node != 42 {
		t.Fatalf("node bits = %d, want 42", node)
	}

	SetNodeID(5000) // out of range falls back to 1
	id = Generate()
	if node := (id >> 12) & 0x3FF; node != 1 {
		t.Fatalf("node bits = %d, want fallback 1", node)
	}
}
