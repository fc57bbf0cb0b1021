package runtime

import (
	"testing"

	"asteria/internal/value"
)

func TestPRNGBatchesAndRange(t *testing.T) {
	p := NewPRNG()
	// Exhaust more than one 256-word batch to exercise the refill path.
	seen := make(map[uint32]bool)
	for i := 0; i < randSize*3; i++ {
		seen[p.Bump()] = true
	}
	// A cryptographic generator repeating heavily inside three batches would
	// be a catastrophic failure, not a flake.
	if len(seen) < randSize*2 {
		t.Errorf("only %d distinct words in %d draws", len(seen), randSize*3)
	}
	for i := 0; i < 1000; i++ {
		f := p.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64 out of [0,1): %v", f)
		}
	}
}

func TestPRNGInstancesAreIndependentlySeeded(t *testing.T) {
	a, b := NewPRNG(), NewPRNG()
	same := 0
	for i := 0; i < 16; i++ {
		if a.Bump() == b.Bump() {
			same++
		}
	}
	if same == 16 {
		t.Error("two generators produced identical streams; seeding is broken")
	}
}

func TestCollectorThresholds(t *testing.T) {
	c := NewCollector()
	old := c.SetThreshold(GenerationNewest, 42)
	if old != 100 {
		t.Errorf("default newest threshold = %d, want 100", old)
	}
	if got := c.GetThreshold(GenerationNewest); got != 42 {
		t.Errorf("threshold after set = %d, want 42", got)
	}
	if c.GetThreshold(Generation(7)) != 0 {
		t.Error("an invalid generation must read as zero")
	}
}

func TestCollectorTrackAndCollectPromotes(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 5; i++ {
		c.Track(value.NewVariable(value.Int(int64(i))))
	}
	if got := c.CountVariables(GenerationNewest); got != 5 {
		t.Fatalf("newest count = %d, want 5", got)
	}
	c.Collect(GenerationNewest)
	if got := c.CountVariables(GenerationNewest); got != 0 {
		t.Errorf("newest generation must drain after a collection, got %d", got)
	}
	if got := c.CountVariables(GenerationOldest); got != 5 {
		t.Errorf("survivors must promote upward, cumulative count = %d, want 5", got)
	}
}

func TestGlobalRecursionGuard(t *testing.T) {
	g := New(APIVersionLatest)
	for i := 0; i < 512; i++ {
		if err := g.Recursion(); err != nil {
			t.Fatalf("depth %d must still be allowed: %v", i, err)
		}
	}
	if err := g.Recursion(); err == nil {
		t.Fatal("exceeding the depth limit must fail")
	}
	g.ReleaseRecursion()
	if err := g.Recursion(); err != nil {
		t.Errorf("releasing a level must make room again: %v", err)
	}
}

func TestAPIVersionSelectsModulePrefix(t *testing.T) {
	registered := len(stdModules)
	if registered == 0 {
		t.Skip("no std modules linked into this test binary")
	}
	g := New(APIVersionNone)
	for _, m := range stdModules {
		_, present := g.Std().Get(m.name)
		want := m.apiVersion <= APIVersionNone
		if present != want {
			t.Errorf("module %s (version %#x) present=%v at request 0", m.name, m.apiVersion, present)
		}
	}
}
