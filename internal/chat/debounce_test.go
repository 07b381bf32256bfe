package chat

import "testing"

func TestDebouncerSettlesNewest(t *testing.T) {
	var d Debouncer

	g1 := d.Change("h")
	g2 := d.Change("he")
	g3 := d.Change("hey")

	if d.Settle(g1) || d.Settle(g2) {
		t.Error("stale generations must not settle")
	}
	if d.Value() != "" {
		t.Errorf("Value() = %q before settle", d.Value())
	}
	if !d.Settle(g3) {
		t.Error("newest generation should settle")
	}
	if d.Value() != "hey" {
		t.Errorf("Value() = %q, want hey", d.Value())
	}
	if d.Settle(g3) {
		t.Error("settling twice should report no change")
	}
}

func TestDebouncerSameValue(t *testing.T) {
	var d Debouncer

	g1 := d.Change("x")
	g2 := d.Change("x")
	if g1 != g2 {
		t.Error("unchanged value should keep its generation")
	}
}

func TestDebouncerReset(t *testing.T) {
	var d Debouncer
	g := d.Change("abc")
	d.Settle(g)

	d.Reset()
	if d.Value() != "" {
		t.Errorf("Value() = %q after reset", d.Value())
	}
	if d.Settle(g) {
		t.Error("pre-reset generation must not settle")
	}
}
