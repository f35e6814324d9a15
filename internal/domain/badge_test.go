package domain

import "testing"

func TestDiscountFor_KnownBadges(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		tier  int
		want  float64
	}{
		{name: "bronze grants nothing at any tier", level: Bronze, tier: 1, want: 0},
		{name: "silver tier 1 boosted by entry multiplier", level: Silver, tier: 1, want: 7.5},
		{name: "silver tier 3 is the base discount", level: Silver, tier: 3, want: 5},
		{name: "gold tier 2", level: Gold, tier: 2, want: 12.5},
		{name: "platinum tier 1", level: Platinum, tier: 1, want: 22.5},
		{name: "legend tier 1 stays under the cap", level: Legend, tier: 1, want: 45},
		{name: "legend tier 3 base", level: Legend, tier: 3, want: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiscountFor(tt.level, tt.tier); got != tt.want {
				t.Fatalf("DiscountFor(%v, %d) = %v, want %v", tt.level, tt.tier, got, tt.want)
			}
		})
	}
}

func TestDiscountFor_AlwaysWithinBounds(t *testing.T) {
	for level := Bronze; level <= Legend; level++ {
		for tier := MinTier; tier <= MaxTier; tier++ {
			got := DiscountFor(level, tier)
			if got < 0 || got > MaxDiscountPercent {
				t.Fatalf("DiscountFor(%v, %d) = %v, outside [0, %v]", level, tier, got, MaxDiscountPercent)
			}
		}
	}
}

func TestDiscountFor_InvalidInputsGrantNothing(t *testing.T) {
	if got := DiscountFor(Level(99), 1); got != 0 {
		t.Fatalf("expected 0 for invalid level, got %v", got)
	}
	if got := DiscountFor(Gold, 0); got != 0 {
		t.Fatalf("expected 0 for tier below range, got %v", got)
	}
	if got := DiscountFor(Gold, 4); got != 0 {
		t.Fatalf("expected 0 for tier above range, got %v", got)
	}
}

func TestThresholds_StrictlyIncreasing(t *testing.T) {
	prev := int64(-1)
	for level := Bronze; level <= Legend; level++ {
		for tier := MinTier; tier <= MaxTier; tier++ {
			th := Threshold(level, tier)
			if th <= prev {
				t.Fatalf("threshold for %v tier %d (%d) not above previous (%d)", level, tier, th, prev)
			}
			prev = th
		}
	}
}

func TestEvaluateUpgrade_TierUpBeforeLevelUp(t *testing.T) {
	// 2000 points clears Gold tier 2; a Gold 1 badge should climb a
	// tier, not jump levels.
	badge, change := EvaluateUpgrade(Badge{Level: Gold, Tier: 1}, 2000)
	if change != BadgeTierUp {
		t.Fatalf("expected tier-up, got %v", change)
	}
	if badge != (Badge{Level: Gold, Tier: 2}) {
		t.Fatalf("expected Gold 2, got %v", badge)
	}
}

func TestEvaluateUpgrade_SingleStepOnly(t *testing.T) {
	// Enough points for Legend, but a Bronze 1 badge moves exactly one
	// step per evaluation.
	badge, change := EvaluateUpgrade(Badge{Level: Bronze, Tier: 1}, 50000)
	if change != BadgeTierUp {
		t.Fatalf("expected tier-up, got %v", change)
	}
	if badge != (Badge{Level: Bronze, Tier: 2}) {
		t.Fatalf("expected Bronze 2, got %v", badge)
	}
}

func TestEvaluateUpgrade_LevelUpFromTopTier(t *testing.T) {
	badge, change := EvaluateUpgrade(Badge{Level: Bronze, Tier: 3}, 500)
	if change != BadgeLevelUp {
		t.Fatalf("expected level-up, got %v", change)
	}
	if badge != (Badge{Level: Silver, Tier: 1}) {
		t.Fatalf("expected Silver 1, got %v", badge)
	}
}

func TestEvaluateUpgrade_NoChangeBelowThreshold(t *testing.T) {
	badge, change := EvaluateUpgrade(Badge{Level: Silver, Tier: 2}, 800)
	if change != BadgeUnchanged {
		t.Fatalf("expected no change, got %v", change)
	}
	if badge != (Badge{Level: Silver, Tier: 2}) {
		t.Fatalf("badge mutated to %v on unchanged evaluation", badge)
	}
}

func TestEvaluateUpgrade_LegendTier3IsTerminal(t *testing.T) {
	badge, change := EvaluateUpgrade(Badge{Level: Legend, Tier: 3}, 1_000_000)
	if change != BadgeUnchanged {
		t.Fatalf("expected no change at the top badge, got %v", change)
	}
	if badge != (Badge{Level: Legend, Tier: 3}) {
		t.Fatalf("top badge mutated to %v", badge)
	}
}

func TestDecay_StepsDownOneTier(t *testing.T) {
	badge, change := Decay(Badge{Level: Gold, Tier: 2})
	if change != BadgeTierDown {
		t.Fatalf("expected tier-down, got %v", change)
	}
	if badge != (Badge{Level: Gold, Tier: 1}) {
		t.Fatalf("expected Gold 1, got %v", badge)
	}
}

func TestDecay_CrossesLevelBoundaryAtTier1(t *testing.T) {
	badge, change := Decay(Badge{Level: Silver, Tier: 1})
	if change != BadgeLevelDown {
		t.Fatalf("expected level-down, got %v", change)
	}
	if badge != (Badge{Level: Bronze, Tier: 3}) {
		t.Fatalf("expected Bronze 3, got %v", badge)
	}
}

func TestDecay_BronzeIsTheFloor(t *testing.T) {
	for tier := MinTier; tier <= MaxTier; tier++ {
		badge, change := Decay(Badge{Level: Bronze, Tier: tier})
		if change != BadgeUnchanged {
			t.Fatalf("Bronze %d decayed (%v)", tier, change)
		}
		if badge != (Badge{Level: Bronze, Tier: tier}) {
			t.Fatalf("Bronze %d mutated to %v", tier, badge)
		}
	}
}

func TestDecayThenUpgradeRoundTrip(t *testing.T) {
	// A decayed badge with unchanged points climbs straight back: decay
	// is one step down, and the points still clear the old threshold.
	start := Badge{Level: Gold, Tier: 2}
	points := Threshold(Gold, 2)

	down, _ := Decay(start)
	up, change := EvaluateUpgrade(down, points)
	if change == BadgeUnchanged {
		t.Fatal("expected the decayed badge to re-qualify for promotion")
	}
	if up != start {
		t.Fatalf("round trip ended at %v, want %v", up, start)
	}
}

func TestParseLevel(t *testing.T) {
	for level := Bronze; level <= Legend; level++ {
		parsed, err := ParseLevel(level.String())
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", level.String(), err)
		}
		if parsed != level {
			t.Fatalf("ParseLevel(%q) = %v, want %v", level.String(), parsed, level)
		}
	}
	if _, err := ParseLevel("Mythril"); err == nil {
		t.Fatal("expected error for unknown level name")
	}
}

func TestBadgeValid(t *testing.T) {
	if !(Badge{Level: Legend, Tier: 3}).Valid() {
		t.Fatal("Legend 3 should be valid")
	}
	if (Badge{Level: Legend, Tier: 4}).Valid() {
		t.Fatal("tier 4 should be invalid")
	}
	if (Badge{Level: Level(7), Tier: 1}).Valid() {
		t.Fatal("level beyond Legend should be invalid")
	}
}
