// Package engine orchestrates one evaluation tick: global gates,
// structural analysis, context scoring, candidate generation,
// validation, ranking, and trigger-machine enrichment, as a pure
// function over already-fetched in-memory inputs.
package engine

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-setup-engine/internal/config"
	"trade-setup-engine/internal/confluence"
	"trade-setup-engine/internal/indicators"
	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/setups"
	"trade-setup-engine/internal/structure"
	"trade-setup-engine/internal/trigger"
)

// Telemetry gate codes for the global short-circuits
const (
	GateGradeD        = "GRADE_D"
	GateNoClose       = "NO_CLOSE"
	GateContextGradeD = "CONTEXT_GRADE_D"
)

const maxSampleRejectNotes = 5

var (
	ErrNilSnapshot = errors.New("engine: nil snapshot")
	ErrNilFeatures = errors.New("engine: nil feature summary")
)

// EvaluateInput is one evaluation tick for one symbol
type EvaluateInput struct {
	Snapshot *market.Snapshot
	Features *market.FeatureSummary
	Now      time.Time
	Paused   bool
}

// Telemetry summarizes what one evaluation did
type Telemetry struct {
	Gate                string         `json:"gate,omitempty"`
	CandidatesEvaluated int            `json:"candidates_evaluated"`
	Accepted            int            `json:"accepted"`
	Rejected            int            `json:"rejected"`
	RejectionsByCode    map[string]int `json:"rejections_by_code,omitempty"`
	SampleRejectNotes   []string       `json:"sample_reject_notes,omitempty"`
	Readiness           []setups.Skip  `json:"readiness,omitempty"`
}

// EvaluationReport is the per-tick output contract
type EvaluationReport struct {
	ID            string               `json:"id"`
	Symbol        string               `json:"symbol"`
	Timestamp     time.Time            `json:"timestamp"`
	DataQualityOk bool                 `json:"data_quality_ok"`
	PreferredID   string               `json:"preferred_id,omitempty"`
	Setups        []*setups.TradeSetup `json:"setups"`
	Telemetry     Telemetry            `json:"telemetry"`
}

// Engine evaluates market snapshots into ranked trade setups. It holds
// no per-symbol state; all cross-tick state lives in the RuntimeCache
// the caller passes to Evaluate.
type Engine struct {
	cfg       *config.Config
	params    setups.Params
	detector  *structure.Detector
	locator   *structure.LevelLocator
	scorer    *confluence.Scorer
	validator *setups.Validator
	machine   *trigger.Machine
	log       zerolog.Logger
}

// New wires an engine from config
func New(cfg *config.Config, logger zerolog.Logger) *Engine {
	scorer := confluence.NewScorer()
	return &Engine{
		cfg: cfg,
		params: setups.Params{
			BOSFreshness:       cfg.Generation.BOSFreshness(),
			SweepFreshnessBars: cfg.Generation.SweepFreshnessBars,
			RetestBandLoBps:    cfg.Generation.RetestBandLoBps,
			RetestBandHiBps:    cfg.Generation.RetestBandHiBps,
			ZoneATR:            cfg.Generation.ZoneATR,
			StopATR:            cfg.Generation.StopATR,
			SqueezeWidthMax:    cfg.Generation.SqueezeWidthMax,
			RangeEdgeATR:       cfg.Generation.RangeEdgeATR,
			NoiseFloorATR:      cfg.Generation.NoiseFloorATR,
			RiskCapATR:         cfg.Generation.RiskCapATR,
			TPFloorATR:         cfg.Generation.TPFloorATR,
			ScalpStopTolerance: cfg.Generation.ScalpStopTolerance,
		},
		detector: structure.NewDetector(cfg.Structure.SwingHalfWindow),
		locator: structure.NewLevelLocator(
			cfg.Structure.SwingHalfWindow, cfg.Structure.LevelEpsilonBps, cfg.Structure.MaxLevels),
		scorer:    scorer,
		validator: setups.NewValidator(scorer),
		machine: trigger.NewMachine(trigger.Config{
			TierHysteresisBps: cfg.Trigger.TierHysteresisBps,
			StaleBars:         cfg.Trigger.StaleBars,
			StaleGrace:        cfg.Trigger.StaleGrace(),
			PriceStaleScale:   cfg.Trigger.PriceStaleScale,
		}, logger),
		log: logger.With().Str("component", "engine").Logger(),
	}
}

// Evaluate runs one full tick: gates, analysis, generation, validation,
// ranking, then the trigger machine over the published setups. The
// cache carries all cross-tick runtime state and must belong to this
// symbol's evaluation loop.
func (e *Engine) Evaluate(in EvaluateInput, cache *trigger.RuntimeCache) (*EvaluationReport, error) {
	if in.Snapshot == nil {
		return nil, ErrNilSnapshot
	}
	if in.Features == nil {
		return nil, ErrNilFeatures
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	report := &EvaluationReport{
		ID:            uuid.NewString(),
		Symbol:        in.Snapshot.Symbol,
		Timestamp:     in.Now,
		DataQualityOk: in.Features.Quality.DataQualityGrade.AtLeast(market.GradeC),
		Setups:        []*setups.TradeSetup{},
		Telemetry:     Telemetry{RejectionsByCode: map[string]int{}},
	}

	if in.Features.Quality.DataQualityGrade == market.GradeD {
		report.Telemetry.Gate = GateGradeD
		e.log.Debug().Str("symbol", report.Symbol).Msg("evaluation gated on data quality")
		return report, nil
	}

	entrySeries := market.Confirmed(in.Snapshot.Series(market.TF15m))
	if len(entrySeries) == 0 {
		report.Telemetry.Gate = GateNoClose
		e.log.Debug().Str("symbol", report.Symbol).Msg("evaluation gated: no usable confirmed close")
		return report, nil
	}

	structures := e.analyzeStructures(in.Snapshot)
	cs := e.scorer.Score(in.Features, structures[market.TF4h])
	if cs.Grade == market.GradeD {
		report.Telemetry.Gate = GateContextGradeD
		e.log.Debug().Str("symbol", report.Symbol).Float64("score", cs.Score).
			Msg("evaluation gated on context grade")
		return report, nil
	}

	genCtx := e.buildGenContext(in, structures)

	var accepted []*setups.TradeSetup
	var skips []setups.Skip
	for _, gen := range setups.Generators() {
		report.Telemetry.CandidatesEvaluated++
		candidate, skip := gen.Generate(genCtx)
		if candidate == nil {
			if skip != nil {
				skips = append(skips, *skip)
			}
			continue
		}
		if rejs := e.validator.Validate(candidate, genCtx, cs); len(rejs) > 0 {
			report.Telemetry.Rejected++
			for _, r := range rejs {
				report.Telemetry.RejectionsByCode[r.Code]++
				if len(report.Telemetry.SampleRejectNotes) < maxSampleRejectNotes {
					report.Telemetry.SampleRejectNotes = append(report.Telemetry.SampleRejectNotes, r.Note)
				}
			}
			continue
		}
		report.Telemetry.Accepted++
		accepted = append(accepted, candidate)
	}

	report.Setups, report.PreferredID = setups.Publish(accepted, e.cfg.Engine.TopN)
	report.Telemetry.Readiness = setups.Readiness(skips)

	e.Tick(report.Setups, in, cache)

	e.log.Debug().Str("symbol", report.Symbol).
		Int("accepted", report.Telemetry.Accepted).
		Int("rejected", report.Telemetry.Rejected).
		Str("preferred_id", report.PreferredID).
		Msg("evaluation complete")
	return report, nil
}

// Tick advances published setups through the trigger machine and the
// per-setup enrichment, then prunes the runtime cache
func (e *Engine) Tick(published []*setups.TradeSetup, in EvaluateInput, cache *trigger.RuntimeCache) {
	step := trigger.TickInput{
		Snapshot: in.Snapshot,
		Features: in.Features,
		Now:      in.Now,
		Paused:   in.Paused,
	}
	for _, s := range published {
		e.machine.Step(s, step, cache)
	}
	cache.Prune(in.Now)
}

// analyzeStructures runs the detector over every timeframe present in
// the snapshot
func (e *Engine) analyzeStructures(snap *market.Snapshot) map[market.Timeframe]*structure.Analysis {
	out := make(map[market.Timeframe]*structure.Analysis, len(snap.Timeframes))
	for _, series := range snap.Timeframes {
		if !series.Timeframe.Valid() || len(series.Candles) == 0 {
			continue
		}
		out[series.Timeframe] = e.detector.Analyze(series.Timeframe, series.Candles, structure.TrendUnknown)
	}
	return out
}

// buildGenContext assembles the shared generation context for one tick
func (e *Engine) buildGenContext(in EvaluateInput, structures map[market.Timeframe]*structure.Analysis) *setups.GenContext {
	candles := make(map[market.Timeframe][]market.Candle, len(in.Snapshot.Timeframes))
	for _, series := range in.Snapshot.Timeframes {
		candles[series.Timeframe] = series.Candles
	}

	entry := market.Confirmed(in.Snapshot.Series(market.TF15m))
	fast := market.Confirmed(in.Snapshot.Series(market.TF5m))

	levelSeries := market.Confirmed(in.Snapshot.Series(market.TF1h))
	if len(levelSeries) == 0 {
		levelSeries = entry
	}

	return &setups.GenContext{
		Symbol:     in.Snapshot.Symbol,
		Now:        in.Now,
		Price:      in.Snapshot.Price.Mid,
		Features:   in.Features,
		Candles:    candles,
		Structures: structures,
		Levels:     e.locator.Locate(levelSeries, e.cfg.Structure.LevelLookback),
		ATR:        indicators.ATR(entry, e.cfg.Engine.ATRPeriod),
		FastATR:    indicators.ATR(fast, e.cfg.Engine.ATRPeriod),
		BBWidth:    indicators.BollingerWidth(entry, 20, 2),
		Params:     e.params,
	}
}
