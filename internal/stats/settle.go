package stats

import "math"

// ApplyPoints adds delta to health and settles any overflow.
//
// Health is clamped to [0, MaxHealth]. While health sits at or above
// LevelTrigger, the overflow converts into 1+floor(overflow/LevelSpan)
// levels (and CoinsPerLevel coins each), leaving overflow mod LevelSpan
// capped at MaxSettledHealth. No timestamp is involved.
func ApplyPoints(cfg Config, s State, delta float64) State {
	s.Health = clamp(s.Health+delta, 0, cfg.MaxHealth)
	for s.Health >= cfg.LevelTrigger {
		overflow := s.Health - cfg.LevelTrigger
		gained := 1 + int(math.Floor(overflow/cfg.LevelSpan))
		remainder := math.Mod(overflow, cfg.LevelSpan)

		s.SkillLevel += gained
		s.Coins += gained * cfg.CoinsPerLevel
		s.Health = clamp(remainder, 0, cfg.MaxSettledHealth)
	}
	return s
}
