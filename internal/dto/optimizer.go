package dto

import (
	"encoding/json"
	"math"
)

type ParamType string

const (
	ParamTypeInt   ParamType = "int"
	ParamTypeFloat ParamType = "float"
)

// ParamRange declares one optimizable value addressed by a dotted path into
// the strategy document, e.g. "indicators.0.params.period".
type ParamRange struct {
	Path string    `json:"path" yaml:"path" validate:"required"`
	Min  float64   `json:"min" yaml:"min"`
	Max  float64   `json:"max" yaml:"max" validate:"gtefield=Min"`
	Step float64   `json:"step,omitempty" yaml:"step,omitempty" validate:"gte=0"`
	Type ParamType `json:"type" yaml:"type" validate:"required,oneof=int float"`
}

type GAConfig struct {
	PopulationSize int     `json:"population_size" yaml:"population_size" validate:"gte=2"`
	Generations    int     `json:"generations" yaml:"generations" validate:"gte=0"`
	MutationRate   float64 `json:"mutation_rate" yaml:"mutation_rate" validate:"gte=0,lte=1"`
	CrossoverRate  float64 `json:"crossover_rate" yaml:"crossover_rate" validate:"gte=0,lte=1"`
	ElitismPct     float64 `json:"elitism_pct" yaml:"elitism_pct" validate:"gte=0,lte=1"`
	MaxWorkers     int     `json:"max_workers,omitempty" yaml:"max_workers,omitempty" validate:"gte=0"`
	Seed           int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
}

type Individual struct {
	Params  map[string]float64 `json:"params"`
	Fitness float64            `json:"fitness"`
}

type GenerationStat struct {
	Generation   int     `json:"generation"`
	BestFitness  float64 `json:"best_fitness"`
	AvgFitness   float64 `json:"avg_fitness"`
	WorstFitness float64 `json:"worst_fitness"`
}

type OptimizeResult struct {
	RunID           string             `json:"run_id"`
	BestParams      map[string]float64 `json:"best_params"`
	BestFitness     float64            `json:"best_fitness"`
	History         []GenerationStat   `json:"history"`
	FinalPopulation []Individual       `json:"final_population"`
	Evaluations     int                `json:"evaluations"`
	Cancelled       bool               `json:"cancelled"`
}

type OptimizeRequest struct {
	Candles        *CandleQuery   `json:"candles,omitempty" validate:"required_without=Series"`
	Series         *BarSeries     `json:"series,omitempty" validate:"required_without=Candles"`
	Strategy       StrategyConfig `json:"strategy" validate:"required"`
	InitialCapital float64        `json:"initial_capital" validate:"gte=0"`
	Parameters     []ParamRange   `json:"parameters" validate:"required,min=1,dive"`
	GA             *GAConfig      `json:"ga,omitempty"`
}

// Failed evaluations score -Inf, which encoding/json rejects; those values
// are emitted as null.

func (i Individual) MarshalJSON() ([]byte, error) {
	type alias Individual
	return json.Marshal(struct {
		alias
		Fitness *float64 `json:"fitness"`
	}{alias(i), finiteOrNil(i.Fitness)})
}

func (g GenerationStat) MarshalJSON() ([]byte, error) {
	type alias GenerationStat
	return json.Marshal(struct {
		alias
		BestFitness  *float64 `json:"best_fitness"`
		AvgFitness   *float64 `json:"avg_fitness"`
		WorstFitness *float64 `json:"worst_fitness"`
	}{alias(g), finiteOrNil(g.BestFitness), finiteOrNil(g.AvgFitness), finiteOrNil(g.WorstFitness)})
}

func (r OptimizeResult) MarshalJSON() ([]byte, error) {
	type alias OptimizeResult
	return json.Marshal(struct {
		alias
		BestFitness *float64 `json:"best_fitness"`
	}{alias(r), finiteOrNil(r.BestFitness)})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
