package economy

import (
	"math/rand"
	"testing"
	"time"
)

func TestDrawAmountStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	min, max := int64(50), int64(200)
	seenMin, seenMax := false, false
	for i := 0; i < 10000; i++ {
		got := drawAmount(rng, min, max)
		if got < min || got > max {
			t.Fatalf("drawAmount(%d, %d) = %d, out of range", min, max, got)
		}
		if got == min {
			seenMin = true
		}
		if got == max {
			seenMax = true
		}
	}
	// Both bounds are inclusive; over 10k draws both must show up.
	if !seenMin || !seenMax {
		t.Errorf("bounds not inclusive: saw min=%v max=%v", seenMin, seenMax)
	}
}

func TestDrawAmountDegenerateRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if got := drawAmount(rng, 100, 100); got != 100 {
		t.Errorf("drawAmount(100, 100) = %d, want 100", got)
	}
}

func TestRollSuccessEdgeRates(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		if !rollSuccess(rng, 1.0) {
			t.Fatal("rate 1.0 must always succeed")
		}
		if rollSuccess(rng, 0.0) {
			t.Fatal("rate 0.0 must always fail")
		}
	}
}

func TestPenaltyAmount(t *testing.T) {
	tests := []struct {
		name     string
		drawn    int64
		fraction float64
		cash     int64
		want     int64
	}{
		{"quarter of drawn", 400, 0.25, 1000, 100},
		{"half of drawn", 400, 0.50, 1000, 200},
		{"clamped to cash", 400, 0.50, 150, 150},
		{"zero cash pays nothing", 400, 0.25, 0, 0},
		{"zero fraction", 400, 0, 1000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := penaltyAmount(tt.drawn, tt.fraction, tt.cash); got != tt.want {
				t.Errorf("penaltyAmount(%d, %v, %d) = %d, want %d",
					tt.drawn, tt.fraction, tt.cash, got, tt.want)
			}
		})
	}
}

func TestPenaltyFraction(t *testing.T) {
	tests := []struct {
		kind ActionKind
		want float64
	}{
		{ActionWork, 0},
		{ActionSlut, 0.25},
		{ActionCrime, 0.50},
		{ActionRob, 0.25},
	}
	for _, tt := range tests {
		if got := penaltyFraction(tt.kind); got != tt.want {
			t.Errorf("penaltyFraction(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := 90 * time.Second

	t.Run("never used", func(t *testing.T) {
		if got := cooldownRemaining(nil, now, cooldown); got != 0 {
			t.Errorf("got %v, want 0", got)
		}
	})
	t.Run("mid cooldown", func(t *testing.T) {
		last := now.Add(-30 * time.Second)
		if got := cooldownRemaining(&last, now, cooldown); got != 60*time.Second {
			t.Errorf("got %v, want 60s", got)
		}
	})
	t.Run("exactly elapsed", func(t *testing.T) {
		last := now.Add(-cooldown)
		if got := cooldownRemaining(&last, now, cooldown); got != 0 {
			t.Errorf("got %v, want 0", got)
		}
	})
	t.Run("long past", func(t *testing.T) {
		last := now.Add(-time.Hour)
		if got := cooldownRemaining(&last, now, cooldown); got != 0 {
			t.Errorf("got %v, want 0", got)
		}
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		amount  int64
		all     bool
		wantErr bool
	}{
		{"100", 100, false, false},
		{" 42 ", 42, false, false},
		{"all", 0, true, false},
		{"ALL", 0, true, false},
		{"0", 0, false, true},
		{"-5", 0, false, true},
		{"ten", 0, false, true},
	}
	for _, tt := range tests {
		amount, all, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if amount != tt.amount || all != tt.all {
			t.Errorf("parseAmount(%q) = (%d, %v), want (%d, %v)", tt.in, amount, all, tt.amount, tt.all)
		}
	}
}
