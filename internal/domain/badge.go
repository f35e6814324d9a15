/**
 * @description
 * This file implements the badge progression system: 7 ordered levels, each
 * with 3 tiers, earned through performance points and granting a purchase
 * discount. All functions here are pure; persistence of the resulting state
 * is the caller's concern.
 *
 * @notes
 * - Levels are an ordered integer enum with explicit Next/Previous instead of
 *   string-list scans, so transitions are statically checkable.
 * - Upgrade evaluation advances AT MOST ONE step per call. A single large
 *   point award that crosses several thresholds still moves the badge one
 *   tier (or one level); the next award moves it again. Decay mirrors this
 *   with a single step down per call.
 */

package domain

import "fmt"

// Level is an ordered badge level. Higher values rank higher.
type Level int

const (
	Bronze Level = iota
	Silver
	Gold
	Platinum
	Diamond
	Master
	Legend
)

// NumLevels is the count of defined badge levels.
const NumLevels = 7

// Tier bounds within a level. Tier thresholds increase with the tier number.
const (
	MinTier = 1
	MaxTier = 3
)

// MaxDiscountPercent caps the final discount regardless of level and tier.
const MaxDiscountPercent = 50.0

var levelNames = [NumLevels]string{"Bronze", "Silver", "Gold", "Platinum", "Diamond", "Master", "Legend"}

// badgeThresholds maps level -> tier (1-based) -> performance points required.
// Thresholds increase across tiers within a level, and the tier-1 threshold of
// each level exceeds the tier-3 threshold of the level below it.
var badgeThresholds = [NumLevels][MaxTier + 1]int64{
	Bronze:   {0, 0, 100, 250},
	Silver:   {0, 500, 750, 1000},
	Gold:     {0, 1500, 2000, 2500},
	Platinum: {0, 3500, 4500, 5500},
	Diamond:  {0, 7000, 9000, 11000},
	Master:   {0, 14000, 18000, 22000},
	Legend:   {0, 30000, 40000, 50000},
}

// baseDiscounts maps level -> base discount percent before the tier multiplier.
var baseDiscounts = [NumLevels]float64{
	Bronze:   0,
	Silver:   5,
	Gold:     10,
	Platinum: 15,
	Diamond:  20,
	Master:   25,
	Legend:   30,
}

// tierMultipliers maps tier (1-based) -> discount multiplier. Tier 1 is the
// highest sub-rank in display terms and receives the largest multiplier.
var tierMultipliers = [MaxTier + 1]float64{0, 1.5, 1.25, 1.0}

func (l Level) String() string {
	if l < Bronze || l > Legend {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// Valid reports whether the level is one of the defined badge levels.
func (l Level) Valid() bool {
	return l >= Bronze && l <= Legend
}

// Next returns the level above, and false when already at Legend.
func (l Level) Next() (Level, bool) {
	if l >= Legend {
		return l, false
	}
	return l + 1, true
}

// Previous returns the level below, and false when already at Bronze.
func (l Level) Previous() (Level, bool) {
	if l <= Bronze {
		return l, false
	}
	return l - 1, true
}

// ParseLevel converts a stored level name back into a Level.
func ParseLevel(name string) (Level, error) {
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return Bronze, fmt.Errorf("unknown badge level %q", name)
}

// Badge is a (level, tier) pair.
type Badge struct {
	Level Level `json:"level"`
	Tier  int   `json:"tier"`
}

// NewUserBadge is the starting badge for a freshly provisioned user.
func NewUserBadge() Badge {
	return Badge{Level: Bronze, Tier: MinTier}
}

func (b Badge) String() string {
	return fmt.Sprintf("%s %d", b.Level, b.Tier)
}

// Valid reports whether the badge is within the defined level and tier bounds.
func (b Badge) Valid() bool {
	return b.Level.Valid() && b.Tier >= MinTier && b.Tier <= MaxTier
}

// Threshold returns the performance points required for a given level/tier.
func Threshold(level Level, tier int) int64 {
	return badgeThresholds[level][tier]
}

// DiscountFor computes the purchase discount percent granted by a badge:
// min(baseDiscount[level] * tierMultiplier[tier], MaxDiscountPercent).
// Pure; identical inputs always produce identical output in [0, 50].
func DiscountFor(level Level, tier int) float64 {
	if !level.Valid() || tier < MinTier || tier > MaxTier {
		return 0
	}
	discount := baseDiscounts[level] * tierMultipliers[tier]
	if discount > MaxDiscountPercent {
		return MaxDiscountPercent
	}
	return discount
}

// Discount is shorthand for DiscountFor on the badge's own state.
func (b Badge) Discount() float64 {
	return DiscountFor(b.Level, b.Tier)
}

// BadgeChange describes the outcome of an upgrade or decay evaluation.
type BadgeChange int

const (
	BadgeUnchanged BadgeChange = iota
	BadgeTierUp
	BadgeLevelUp
	BadgeTierDown
	BadgeLevelDown
)

func (c BadgeChange) String() string {
	switch c {
	case BadgeTierUp:
		return "tier-up"
	case BadgeLevelUp:
		return "level-up"
	case BadgeTierDown:
		return "tier-down"
	case BadgeLevelDown:
		return "level-down"
	default:
		return "unchanged"
	}
}

// EvaluateUpgrade applies at most one promotion step for the given cumulative
// performance points. Tier-up is checked before level-up, so a badge below
// tier 3 always climbs through its remaining tiers before changing level.
func EvaluateUpgrade(b Badge, points int64) (Badge, BadgeChange) {
	if b.Tier < MaxTier && points >= badgeThresholds[b.Level][b.Tier+1] {
		b.Tier++
		return b, BadgeTierUp
	}
	if next, ok := b.Level.Next(); ok && points >= badgeThresholds[next][MinTier] {
		b.Level = next
		b.Tier = MinTier
		return b, BadgeLevelUp
	}
	return b, BadgeUnchanged
}

// Decay applies one demotion step, the inverse of EvaluateUpgrade's single
// step: tier > 1 drops a tier, tier 1 drops to the previous level at tier 3.
// Bronze is the floor; a Bronze badge never decays regardless of tier.
func Decay(b Badge) (Badge, BadgeChange) {
	if b.Level == Bronze {
		return b, BadgeUnchanged
	}
	if b.Tier > MinTier {
		b.Tier--
		return b, BadgeTierDown
	}
	prev, _ := b.Level.Previous()
	b.Level = prev
	b.Tier = MaxTier
	return b, BadgeLevelDown
}
