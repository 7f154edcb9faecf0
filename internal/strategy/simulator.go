package strategy

import (
	"math"
	"sort"

	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

var signalOrder = []Signal{SignalHighPower, SignalDeadlinePressure, SignalNegativeTone, SignalLegalAction}

// Simulator implements core.StrategySimulator
type Simulator struct {
	catalog []Entry
	cfg     config.StrategyConfig
	roles   core.RoleClassifier
	logger  *zap.Logger
}

// NewSimulator creates a simulator over the default catalog
func NewSimulator(cfg config.StrategyConfig, roles core.RoleClassifier, logger *zap.Logger) *Simulator {
	return &Simulator{catalog: DefaultCatalog(), cfg: cfg, roles: roles, logger: logger}
}

// WithCatalog replaces the strategy catalog
func (s *Simulator) WithCatalog(catalog []Entry) *Simulator {
	s.catalog = catalog
	return s
}

// Signals evaluates which conditions hold for the case
func (s *Simulator) Signals(timeline core.Timeline, profiles map[string]core.ActorPowerProfile, aggregates core.BehavioralAggregates) map[Signal]bool {
	return map[Signal]bool{
		SignalHighPower:        meanPower(profiles) > s.cfg.PowerThreshold,
		SignalDeadlinePressure: aggregates.Total(core.IndicatorDeadlinePressure) >= s.cfg.DeadlineThreshold,
		SignalNegativeTone:     aggregates.Total(core.IndicatorNegativeTone) >= s.cfg.NegativeThreshold,
		SignalLegalAction:      timeline.HasLegalAction(),
	}
}

// Simulate scores every catalog entry and returns them ranked by probability.
// Ties keep catalog order.
func (s *Simulator) Simulate(timeline core.Timeline, profiles map[string]core.ActorPowerProfile, aggregates core.BehavioralAggregates) []core.StrategyScenario {
	signals := s.Signals(timeline, profiles, aggregates)
	roles := s.rolesPresent(profiles)

	scenarios := make([]core.StrategyScenario, 0, len(s.catalog))
	for _, e := range s.catalog {
		sc := core.StrategyScenario{
			Name:                 e.Name,
			BaseProbability:      e.Base,
			RiskLevel:            e.RiskLevel,
			ExpectedTimeline:     e.ExpectedTimeline,
			ResourceRequirements: append([]string{}, e.Resources...),
			StakeholderResponses: map[string]string{},
			Adjustments:          []core.Adjustment{},
			ActionSequence:       append([]string{}, e.Actions...),
		}
		p := e.Base
		for _, sig := range signalOrder {
			delta, ok := e.Terms[sig]
			if !ok || !signals[sig] || delta == 0 {
				continue
			}
			p += delta
			sc.Adjustments = append(sc.Adjustments, core.Adjustment{Signal: string(sig), Delta: delta})
		}
		sc.SuccessProbability = math.Round(math.Max(0, math.Min(1, p))*10000) / 10000

		for _, role := range roles {
			if resp, ok := e.Responses[role]; ok {
				sc.StakeholderResponses[role] = resp
			} else if resp, ok := e.Responses["*"]; ok {
				sc.StakeholderResponses[role] = resp
			}
		}
		scenarios = append(scenarios, sc)
	}

	sort.SliceStable(scenarios, func(i, j int) bool {
		return scenarios[i].SuccessProbability > scenarios[j].SuccessProbability
	})
	for i := range scenarios {
		scenarios[i].Rank = i + 1
	}

	if len(scenarios) > 0 {
		s.logger.Debug("Simulated strategies",
			zap.String("recommended", string(scenarios[0].Name)),
			zap.Float64("probability", scenarios[0].SuccessProbability))
	}
	return scenarios
}

func (s *Simulator) rolesPresent(profiles map[string]core.ActorPowerProfile) []string {
	if s.roles == nil {
		return nil
	}
	set := map[string]struct{}{}
	for addr := range profiles {
		set[s.roles.Role(addr, "")] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func meanPower(profiles map[string]core.ActorPowerProfile) float64 {
	return core.GraphResult{Profiles: profiles}.MeanPower()
}
