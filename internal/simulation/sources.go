package simulation

import "energy-bubbles/internal/domain"

// MaxShareStep is the largest change a single tick applies to a source's share, in percentage points.
const MaxShareStep = 1.0

// StepSources applies one generation-mix tick. Sources move independently, so the total is free to
// drift away from 100.
func StepSources(sources []domain.EnergySource, r Rand) []domain.EnergySource {
	next := make([]domain.EnergySource, len(sources))
	for i, s := range sources {
		s.Share = clamp(domain.MinShare, domain.MaxShare, s.Share+Uniform(r, -MaxShareStep, MaxShareStep))
		next[i] = s
	}
	return next
}

// Normalize rescales shares so they sum to 100. A set whose total is zero is returned unchanged.
func Normalize(sources []domain.EnergySource) []domain.EnergySource {
	next := make([]domain.EnergySource, len(sources))
	copy(next, sources)

	total := domain.TotalShare(sources)
	if total <= 0 {
		return next
	}
	for i := range next {
		next[i].Share = clamp(domain.MinShare, domain.MaxShare, next[i].Share*domain.MaxShare/total)
	}
	return next
}
