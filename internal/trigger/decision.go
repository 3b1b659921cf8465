package trigger

import (
	"fmt"
	"strings"
	"time"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/setups"
)

// decide derives the execution decision for this tick. The decision is
// recomputed from scratch every tick and never feeds back into the
// canonical setup status.
func (m *Machine) decide(s *setups.TradeSetup, rt *setupRuntime, in TickInput, mid float64) {
	d := &setups.ExecutionDecision{}

	if gates := m.gateBlockers(s, in); len(gates) > 0 {
		d.State = setups.ExecBlocked
		d.Blockers = gates
		d.Reason = "global gate active: " + strings.Join(gates, ", ")
	} else if s.Confidence.GradePlus == market.GradeC || !s.Confidence.Grade.AtLeast(market.GradeB) {
		d.State = setups.ExecMonitor
		d.Reason = fmt.Sprintf("grade %s confidence is watch-only", s.Confidence.GradePlus)
	} else if s.Status.Terminal() {
		d.State = setups.ExecNoTrade
		d.Reason = fmt.Sprintf("setup is %s", s.Status)
	} else {
		m.mapActionable(s, d)
	}

	d.Narrative = narrative(s, d, in.Now)
	s.Execution = d
}

// gateBlockers collects the global gates that force BLOCKED
func (m *Machine) gateBlockers(s *setups.TradeSetup, in TickInput) []string {
	var gates []string
	if in.Paused {
		gates = append(gates, "engine_paused")
	}
	q := in.Features.Quality
	if !q.DataQualityGrade.AtLeast(market.GradeC) {
		gates = append(gates, "data_quality")
	}
	if !q.PrimaryFeedOk {
		gates = append(gates, "primary_feed_down")
	}

	tf := s.EntryTimeframe
	if !tf.Valid() {
		tf = market.TF15m
	}
	tolerance := time.Duration(m.cfg.PriceStaleScale * float64(tf.Duration()))
	if in.Now.Sub(in.Snapshot.Price.Timestamp) > tolerance {
		gates = append(gates, "stale_price_feed")
	}
	return gates
}

// mapActionable maps (status, mode, tier, blockers) to the actionable
// decision states. Market entry demands a CONFIRMED tier; limit
// placement at grade B demands CONFIRMED while grade A may rest a limit
// once the zone has been touched.
func (m *Machine) mapActionable(s *setups.TradeSetup, d *setups.ExecutionDecision) {
	d.Blockers = setups.ChecklistBlockers(s.Entry.Trigger.Checklist)
	tier := s.Entry.Trigger.Tier

	switch s.Status {
	case setups.StatusTriggered:
		if s.Entry.Mode == setups.ModeMarket {
			d.State = setups.ExecEnterMarket
			d.CanEnterMarket = true
			d.Reason = "trigger confirmed, market entry allowed"
		} else {
			d.State = setups.ExecWaitFill
			d.CanPlaceLimit = true
			d.Reason = "trigger confirmed, waiting for limit fill"
		}

	case setups.StatusReady:
		if s.Entry.Mode == setups.ModeMarket {
			d.State = setups.ExecWaitClose
			d.Reason = "market entry requires a confirmed trigger close"
			return
		}
		limitOK := tier == setups.TierConfirmed ||
			(tier >= setups.TierTouched && s.Confidence.GradePlus.AtLeast(market.GradeA))
		switch {
		case limitOK:
			d.State = setups.ExecPlaceLimit
			d.CanPlaceLimit = true
			d.Reason = "zone engaged, limit placement allowed"
		case hasBlocker(d.Blockers, setups.CheckRetest):
			d.State = setups.ExecWaitRetest
			d.Reason = "waiting for the retest of the broken level"
		case tier >= setups.TierTouched:
			d.State = setups.ExecWaitClose
			d.Reason = "zone touched, waiting for confirming close"
		default:
			d.State = setups.ExecWaitZone
			d.Reason = "waiting for price to reach the entry zone"
		}

	default:
		d.State = setups.ExecForming
		d.Reason = "setup still forming"
	}
}

func hasBlocker(blockers []string, key string) bool {
	for _, b := range blockers {
		if b == key {
			return true
		}
	}
	return false
}

// narrative renders the short templated explanation shown alongside the
// decision. It is derived purely from the decision and setup fields.
func narrative(s *setups.TradeSetup, d *setups.ExecutionDecision, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s - %s (tier %s, grade %s)",
		s.Symbol, s.Archetype, s.Side, s.Status, s.Entry.Trigger.Tier, s.Confidence.GradePlus)

	if len(d.Blockers) > 0 {
		fmt.Fprintf(&b, "; blockers: %s", strings.Join(d.Blockers, ", "))
	}

	fmt.Fprintf(&b, "; next: %s", nextAction(d.State))
	fmt.Fprintf(&b, "; invalid beyond %.8g (%s)", s.Stop.Price, s.Stop.Basis)

	if remaining := s.ExpiresAt.Sub(now); remaining > 0 {
		fmt.Fprintf(&b, "; expires in %s", remaining.Round(time.Minute))
	} else {
		b.WriteString("; expired")
	}
	return b.String()
}

func nextAction(state setups.ExecState) string {
	switch state {
	case setups.ExecBlocked:
		return "stand down until gates clear"
	case setups.ExecMonitor:
		return "monitor only, no orders"
	case setups.ExecNoTrade:
		return "discard"
	case setups.ExecWaitRetest:
		return "wait for the retest"
	case setups.ExecWaitClose:
		return "wait for the confirming close"
	case setups.ExecWaitZone:
		return "wait for price to reach the zone"
	case setups.ExecPlaceLimit:
		return "place the limit order"
	case setups.ExecEnterMarket:
		return "enter at market"
	case setups.ExecWaitFill:
		return "manage the resting limit"
	default:
		return "let the setup form"
	}
}

// enrich attaches the per-setup display telemetry, the display-scaled
// confidence, and the priority score
func (m *Machine) enrich(s *setups.TradeSetup, rt *setupRuntime, in TickInput, mid float64) {
	passed, total := setups.ChecklistProgress(s.Entry.Trigger.Checklist)
	progress := 0.0
	if total > 0 {
		progress = float64(passed) / float64(total)
	}
	s.Telemetry = &setups.SetupTelemetry{
		TotalChecklistItems: total,
		PassedItems:         passed,
		BlockingItems:       total - passed,
		ProgressPercent:     progress * 100,
		AgeMs:               in.Now.Sub(rt.firstSeen).Milliseconds(),
		StalledMs:           in.Now.Sub(rt.lastChecklistChange).Milliseconds(),
	}

	// FORMING confidence is softened toward checklist completion for
	// display; READY and TRIGGERED scores are never rescaled
	s.DisplayConfidence = s.Confidence.Score
	if s.Status == setups.StatusForming {
		s.DisplayConfidence = s.Confidence.Score * (0.5 + 0.5*progress)
	}

	s.PriorityScore = PriorityScore(s, mid, in.Features, in.Now)
}
