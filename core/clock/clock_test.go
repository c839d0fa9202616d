package clock

import "testing"

func TestManualIsMonotonic(t *testing.T) {
	c := NewManual(100)
	if c.Now() != 100 {
		t.Fatalf("unexpected start %d", c.Now())
	}
	if got := c.Advance(5); got != 105 {
		t.Fatalf("advance: got %d", got)
	}
	if got := c.Set(50); got != 105 {
		t.Fatalf("set backwards should be ignored, got %d", got)
	}
	if got := c.Set(200); got != 200 {
		t.Fatalf("set forwards: got %d", got)
	}
}

func TestSystemIsPositive(t *testing.T) {
	if (System{}).Now() == 0 {
		t.Fatalf("expected a non-zero wall clock")
	}
}
