package executor

import "testing"

func TestPool_CapacityBounds(t *testing.T) {
	p := NewPool(2)

	if !p.Acquire("writer") || !p.Acquire("writer") {
		t.Fatal("acquire under capacity refused")
	}
	if p.Acquire("writer") {
		t.Fatal("acquire past capacity granted")
	}
	if got := p.Load("writer"); got != 1.0 {
		t.Errorf("Load = %v, want 1.0", got)
	}

	p.Release("writer")
	if got := p.Spare("writer"); got != 1 {
		t.Errorf("Spare = %d, want 1", got)
	}
	if !p.Acquire("writer") {
		t.Fatal("acquire after release refused")
	}
}

func TestPool_PerSpecialtyOverride(t *testing.T) {
	p := NewPool(3)
	p.SetCapacity("designer", 1)

	if !p.Acquire("designer") {
		t.Fatal("first designer slot refused")
	}
	if p.Acquire("designer") {
		t.Fatal("designer capacity override ignored")
	}
	// Other specialties keep the default.
	if got := p.Spare("writer"); got != 3 {
		t.Errorf("writer spare = %d, want 3", got)
	}
}

func TestPool_ReleaseNeverGoesNegative(t *testing.T) {
	p := NewPool(1)
	p.Release("writer")
	if got := p.Spare("writer"); got != 1 {
		t.Errorf("Spare after spurious release = %d, want 1", got)
	}
}
