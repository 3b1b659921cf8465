package setups

import (
	"trade-setup-engine/internal/market"
)

// candidateInput is the archetype-specific part of a candidate; the
// builder derives identity, risk/reward, status, and expiry from it
type candidateInput struct {
	archetype Archetype
	side      Side
	mode      EntryMode
	zone      Zone
	stop      float64
	stopBasis string
	targets   []TakeProfitLeg
	anchor    float64
	checklist []ChecklistItem
	tags      []string
	summary   string
	entryTF   market.Timeframe // optional override
	triggerTF market.Timeframe // optional override
}

// build assembles a full candidate from the archetype-specific parts.
// Status is READY only when the minimum risk/reward clears the
// archetype- and regime-specific floor; otherwise the candidate starts
// FORMING. The fixed expiry horizon is attached here.
func (c *GenContext) build(in candidateInput) *TradeSetup {
	entryTF := in.entryTF
	if entryTF == "" {
		entryTF = in.archetype.EntryTimeframe()
	}
	triggerTF := in.triggerTF
	if triggerTF == "" {
		triggerTF = in.archetype.TriggerTimeframe()
	}
	biasTF := c.Features.Bias.Timeframe
	if biasTF == "" {
		biasTF = market.TF4h
	}

	s := &TradeSetup{
		ID:               SetupID(c.Symbol, in.archetype, in.side, biasTF, entryTF, triggerTF, in.anchor),
		Symbol:           c.Symbol,
		Archetype:        in.archetype,
		Side:             in.side,
		BiasTimeframe:    biasTF,
		EntryTimeframe:   entryTF,
		TriggerTimeframe: triggerTF,
		Entry: EntryPlan{
			Mode: in.mode,
			Zone: in.zone,
			Trigger: TriggerPlan{
				Tier:      TierApproaching,
				Checklist: in.checklist,
				Summary:   in.summary,
				Timeframe: triggerTF,
			},
		},
		Stop:        StopPlan{Price: in.stop, Basis: in.stopBasis},
		TakeProfits: in.targets,
		Tags:        in.tags,
		AnchorPrice: in.anchor,
		CreatedAt:   c.Now,
		ExpiresAt:   c.Now.Add(in.archetype.Expiry()),
	}
	s.RiskRewardMin, s.RiskRewardEst = riskReward(s)

	floor := in.archetype.RRFloor(c.Features.Bias.VolatilityRegime, c.Features.Bias.Complete)
	if s.RiskRewardMin >= floor {
		s.Status = StatusReady
	} else {
		s.Status = StatusForming
	}
	return s
}

// riskReward computes the minimum (worst zone edge to first target)
// and estimated (zone mid to portion-weighted targets) risk/reward
func riskReward(s *TradeSetup) (rrMin, rrEst float64) {
	if len(s.TakeProfits) == 0 {
		return 0, 0
	}
	var worstEntry, midEntry float64
	midEntry = s.Entry.Zone.Mid()
	if s.Side == SideLong {
		worstEntry = s.Entry.Zone.Hi
	} else {
		worstEntry = s.Entry.Zone.Lo
	}

	dir := s.Direction()
	worstRisk := (worstEntry - s.Stop.Price) * dir
	midRisk := (midEntry - s.Stop.Price) * dir
	if worstRisk <= 0 || midRisk <= 0 {
		return 0, 0
	}

	tp1 := s.TakeProfits[0].Price
	rrMin = (tp1 - worstEntry) * dir / worstRisk

	var weighted, portions float64
	for _, leg := range s.TakeProfits {
		p := leg.Portion
		if p <= 0 {
			p = 1
		}
		weighted += (leg.Price - midEntry) * dir * p
		portions += p
	}
	if portions > 0 {
		rrEst = weighted / portions / midRisk
	}
	return rrMin, rrEst
}
