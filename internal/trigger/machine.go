package trigger

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/setups"
)

// Config holds the machine tunables
type Config struct {
	TierHysteresisBps float64       // zone widening once a setup has been touched
	StaleBars         float64       // close-confirm candle age tolerance, in bars
	StaleGrace        time.Duration // grace on top of the bar tolerance
	PriceStaleScale   float64       // price-feed staleness tolerance, in entry-timeframe bars
}

// DefaultConfig returns the production tunables
func DefaultConfig() Config {
	return Config{
		TierHysteresisBps: 5,
		StaleBars:         2,
		StaleGrace:        90 * time.Second,
		PriceStaleScale:   1,
	}
}

// TickInput is everything one machine step consumes
type TickInput struct {
	Snapshot *market.Snapshot
	Features *market.FeatureSummary
	Now      time.Time
	Paused   bool
}

// Machine advances published setups through their per-tick lifecycle.
// It is stateless itself; all cross-tick state lives in the cache the
// caller passes in.
type Machine struct {
	cfg Config
	log zerolog.Logger
}

// NewMachine creates a machine with its component logger
func NewMachine(cfg Config, logger zerolog.Logger) *Machine {
	return &Machine{
		cfg: cfg,
		log: logger.With().Str("component", "trigger_machine").Logger(),
	}
}

// Step advances one setup through a tick. The processing order is
// load-bearing: hard invalidation, then expiry, then tier update, then
// close-confirm, then status stabilization, and only then the
// execution decision and display enrichment.
func (m *Machine) Step(s *setups.TradeSetup, in TickInput, cache *RuntimeCache) {
	cache.Bind(s.Symbol)
	rt := cache.get(s.ID, in.Now)
	m.rebind(s, rt)

	mid := in.Snapshot.Price.Mid
	passedBefore, totalBefore := setups.ChecklistProgress(s.Entry.Trigger.Checklist)

	switch {
	case s.StopBreached(mid):
		// Intrabar stop breach overrides everything, including any
		// pending confirmation
		s.Status = setups.StatusInvalidated
		m.log.Debug().Str("setup_id", s.ID).Float64("mid", mid).
			Float64("stop", s.Stop.Price).Msg("setup invalidated on stop breach")

	case in.Now.After(s.ExpiresAt):
		s.Status = setups.StatusExpired
		m.log.Debug().Str("setup_id", s.ID).Time("expires_at", s.ExpiresAt).
			Msg("setup expired")

	default:
		m.updateTier(s, rt, mid)
		m.closeConfirm(s, rt, in)
		m.stabilize(s, rt, in)
	}
	rt.lastStatus = s.Status
	if p, tot := setups.ChecklistProgress(s.Entry.Trigger.Checklist); p != passedBefore || tot != totalBefore {
		rt.lastChecklistChange = in.Now
	}

	m.decide(s, rt, in, mid)
	m.enrich(s, rt, in, mid)
	m.persist(s, rt)
}

// rebind restores cross-tick trigger state onto a freshly regenerated
// setup object so identity survives regeneration
func (m *Machine) rebind(s *setups.TradeSetup, rt *setupRuntime) {
	if rt.checklist != nil {
		s.Entry.Trigger.Checklist = rt.checklist
	}
	s.Entry.Trigger.Tier = setups.MergeTier(rt.tier, s.Entry.Trigger.Tier, rt.confirmed)
	s.Entry.Trigger.Confirmed = rt.confirmed
	if rt.confirmed {
		s.Status = setups.StatusTriggered
	}
}

// persist writes the advanced trigger state back to the runtime entry
func (m *Machine) persist(s *setups.TradeSetup, rt *setupRuntime) {
	rt.tier = s.Entry.Trigger.Tier
	rt.confirmed = s.Entry.Trigger.Confirmed
	rt.checklist = s.Entry.Trigger.Checklist
}

// updateTier advances the pre-trigger tier while the setup is READY;
// the merge rule keeps it monotonic, and hysteresis keeps a touched
// setup touched when price hovers just outside the zone
func (m *Machine) updateTier(s *setups.TradeSetup, rt *setupRuntime, mid float64) {
	if s.Status != setups.StatusReady || s.Entry.Trigger.Confirmed {
		return
	}

	zone := s.Entry.Zone
	inZone := zone.Contains(mid)
	near := false
	if !inZone && s.Entry.Trigger.Tier >= setups.TierTouched {
		slack := mid * m.cfg.TierHysteresisBps / 10000
		near = mid >= zone.Lo-slack && mid <= zone.Hi+slack
	}

	candidate := setups.TierApproaching
	if inZone || near {
		candidate = setups.TierTouched
	}
	s.Entry.Trigger.Tier = setups.MergeTier(s.Entry.Trigger.Tier, candidate, false)

	if inZone {
		s.Entry.Trigger.Checklist = setups.UpsertChecklistItem(
			s.Entry.Trigger.Checklist, setups.CheckPreTrigger, true, "price inside entry zone")
		if hasChecklistKey(s.Entry.Trigger.Checklist, setups.CheckRetest) {
			s.Entry.Trigger.Checklist = setups.UpsertChecklistItem(
				s.Entry.Trigger.Checklist, setups.CheckRetest, true, "broken level retested")
		}
	}
}

func hasChecklistKey(list []setups.ChecklistItem, key string) bool {
	for i := range list {
		if list[i].Key == key {
			return true
		}
	}
	return false
}

// closeConfirm evaluates the archetype confirmation rule against the
// last confirmed candle of the declared trigger timeframe. A baseline
// close is recorded when READY is first observed and confirmation
// demands a strictly newer close, so the candle that made the setup
// READY can never also trigger it.
func (m *Machine) closeConfirm(s *setups.TradeSetup, rt *setupRuntime, in TickInput) {
	if s.Status != setups.StatusReady || s.Entry.Trigger.Confirmed {
		return
	}

	tf := s.Entry.Trigger.Timeframe
	if !tf.Valid() {
		tf = s.EntryTimeframe
	}
	if !tf.Valid() {
		tf = market.TF15m
	}

	last, ok := market.LastConfirmed(in.Snapshot.Series(tf))
	if !ok || m.candleStale(last, tf, in.Now) {
		// Never trigger on outdated data; flag instead
		s.Entry.Trigger.Checklist = setups.UpsertChecklistItem(
			s.Entry.Trigger.Checklist, setups.CheckFreshData, false,
			fmt.Sprintf("no fresh confirmed %s close", tf))
		return
	}
	s.Entry.Trigger.Checklist = setups.UpsertChecklistItem(
		s.Entry.Trigger.Checklist, setups.CheckFreshData, true,
		fmt.Sprintf("confirmed %s close available", tf))

	if !rt.baselineSet {
		rt.baselineSet = true
		rt.baselineCloseTime = last.OpenTime
		return
	}
	if last.OpenTime <= rt.baselineCloseTime {
		return
	}

	if !confirms(s, last) {
		return
	}

	s.Status = setups.StatusTriggered
	s.Entry.Trigger.Confirmed = true
	s.Entry.Trigger.Tier = setups.MergeTier(s.Entry.Trigger.Tier, setups.TierConfirmed, true)
	s.Entry.Trigger.Checklist = setups.UpsertChecklistItem(
		s.Entry.Trigger.Checklist, setups.CheckCloseConfirm, true,
		fmt.Sprintf("%s close confirmed at %.8g", tf, last.Close))
	m.log.Info().Str("setup_id", s.ID).Str("archetype", string(s.Archetype)).
		Float64("close", last.Close).Msg("setup triggered on close confirm")
}

// candleStale reports whether the last confirmed candle is older than
// the bar tolerance plus grace
func (m *Machine) candleStale(c market.Candle, tf market.Timeframe, now time.Time) bool {
	closeTime := time.UnixMilli(c.OpenTime).Add(tf.Duration())
	tolerance := time.Duration(m.cfg.StaleBars*float64(tf.Duration())) + m.cfg.StaleGrace
	return now.Sub(closeTime) > tolerance
}

// confirms applies the archetype-specific confirmation rule to one
// freshly confirmed candle
func confirms(s *setups.TradeSetup, c market.Candle) bool {
	dir := s.Direction()
	bodyInDir := (c.Close-c.Open)*dir > 0

	switch s.Archetype {
	case setups.ArchetypeBreakoutRetest, setups.ArchetypeFailedSweep:
		// Continuation through the anchor level with a decisive body
		beyond := (c.Close-s.AnchorPrice)*dir > 0
		return beyond && bodyInDir && c.BodyStrength() >= 0.7

	case setups.ArchetypeSqueezeBreakout, setups.ArchetypeScalpMomentum:
		// Expansion close beyond the far zone edge in trade direction
		var edge float64
		if s.Side == setups.SideLong {
			edge = s.Entry.Zone.Hi
		} else {
			edge = s.Entry.Zone.Lo
		}
		return (c.Close-edge)*dir > 0 && bodyInDir && c.BodyStrength() >= 0.6

	default:
		// Reversion rules: the candle must have touched the zone and
		// closed back beyond it in the trade direction (touch + reclaim
		// + rejection)
		var touched, reclaimed bool
		if s.Side == setups.SideLong {
			touched = c.Low <= s.Entry.Zone.Hi
			reclaimed = c.Close > s.Entry.Zone.Hi
		} else {
			touched = c.High >= s.Entry.Zone.Lo
			reclaimed = c.Close < s.Entry.Zone.Lo
		}
		return touched && reclaimed && bodyInDir
	}
}

// stabilize freezes FORMING/READY transitions until a new confirmed
// bar closes on the setup's status timeframe, suppressing sub-bar
// flicker; TRIGGERED and the terminal statuses always pass through
func (m *Machine) stabilize(s *setups.TradeSetup, rt *setupRuntime, in TickInput) {
	if s.Status != setups.StatusForming && s.Status != setups.StatusReady {
		return
	}
	prev := rt.lastStatus
	if prev != setups.StatusForming && prev != setups.StatusReady {
		// First sight, or coming out of nowhere: accept and record
		rt.statusBarTime = m.statusBarTime(s, in)
		return
	}
	if prev == s.Status {
		return
	}

	barTime := m.statusBarTime(s, in)
	if barTime > rt.statusBarTime {
		rt.statusBarTime = barTime
		return
	}
	// No new status bar yet: hold the previous status
	s.Status = prev
}

// statusBarTime returns the open time of the latest confirmed bar on
// the setup's designated status timeframe
func (m *Machine) statusBarTime(s *setups.TradeSetup, in TickInput) int64 {
	tf := s.BiasTimeframe
	if s.Archetype.Scalp() {
		tf = s.EntryTimeframe
	}
	if !tf.Valid() {
		tf = market.TF1h
	}
	last, ok := market.LastConfirmed(in.Snapshot.Series(tf))
	if !ok {
		return 0
	}
	return last.OpenTime
}
