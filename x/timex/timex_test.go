package timex

import (
	"testing"
	"time"
)

func TestPeriodFromHz(t *testing.T) {
	if got := PeriodFromHz(200_000_000); got != 5 {
		t.Fatalf("200MHz period = %d ns, want 5", got)
	}
	if got := PeriodFromHz(0); got != 1_000_000_000 {
		t.Fatalf("zero coerced period = %d", got)
	}
}

func TestMsAndMHz(t *testing.T) {
	if Ms(2*time.Second+999*time.Microsecond) != 2000 {
		t.Fatal("Ms should truncate")
	}
	if MHz(64_000_000) != 64 {
		t.Fatal("MHz")
	}
}
