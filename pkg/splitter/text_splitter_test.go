package splitter

import (
	"strings"
	"testing"
)

func TestPassageSplitter(t *testing.T) {
	ps := NewPassageSplitter(100, 0, 3)

	if got := ps.Split("   "); got != nil {
		t.Errorf("Split(blank) = %v, want nil", got)
	}

	short := ps.Split("Acme raised a Series B.")
	if len(short) != 1 || short[0] != "Acme raised a Series B." {
		t.Errorf("Split(short) = %v", short)
	}

	long := strings.Repeat("Acme expands into new markets across Europe. ", 40)
	got := ps.Split(long)
	if len(got) != 3 {
		t.Fatalf("Split(long) returned %d passages, want 3", len(got))
	}
	for i, p := range got {
		if len(p) > 100 {
			t.Errorf("passage %d has %d chars, want <= 100", i, len(p))
		}
	}
}
