package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang-algotrade/config"
	"golang-algotrade/internal/dto"
	"golang-algotrade/internal/repository"
	"golang-algotrade/pkg/decoder"
	"golang-algotrade/pkg/logger"
	"golang-algotrade/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidParamRange marks a parameter list the optimizer cannot search.
var ErrInvalidParamRange = errors.New("invalid parameter range")

const (
	tournamentSize     = 5
	mutationSigmaRatio = 0.1
)

type OptimizerService interface {
	Optimize(ctx context.Context, req dto.OptimizeRequest) (*dto.OptimizeResult, error)
	DefaultGAConfig() dto.GAConfig
}

type optimizerService struct {
	cfg        *config.Config
	log        *logger.Logger
	validator  *goValidator.Validate
	candleRepo repository.CandleRepository
	backtest   BacktestService
}

func NewOptimizerService(
	cfg *config.Config,
	log *logger.Logger,
	validator *goValidator.Validate,
	candleRepo repository.CandleRepository,
	backtest BacktestService,
) OptimizerService {
	return &optimizerService{
		cfg:        cfg,
		log:        log,
		validator:  validator,
		candleRepo: candleRepo,
		backtest:   backtest,
	}
}

func (s *optimizerService) DefaultGAConfig() dto.GAConfig {
	opt := s.cfg.Optimizer
	return dto.GAConfig{
		PopulationSize: opt.PopulationSize,
		Generations:    opt.Generations,
		MutationRate:   opt.MutationRate,
		CrossoverRate:  opt.CrossoverRate,
		ElitismPct:     opt.ElitismPct,
		MaxWorkers:     opt.MaxWorkers,
		Seed:           opt.Seed,
	}
}

// Optimize searches the parameter space with a genetic algorithm. A cancelled
// context ends the search early; the partial result is returned with
// Cancelled set and no error.
func (s *optimizerService) Optimize(ctx context.Context, req dto.OptimizeRequest) (*dto.OptimizeResult, error) {
	ga := s.DefaultGAConfig()
	if req.GA != nil {
		ga = *req.GA
	}
	if ga.MaxWorkers <= 0 {
		ga.MaxWorkers = s.cfg.Optimizer.MaxWorkers
	}
	if ga.MaxWorkers <= 0 {
		ga.MaxWorkers = runtime.NumCPU()
	}
	if ga.Seed == 0 {
		ga.Seed = time.Now().UnixNano()
	}
	if err := s.validator.Struct(ga); err != nil {
		return nil, fmt.Errorf("invalid ga config: %w", err)
	}

	params, err := s.normalizeParams(req.Parameters)
	if err != nil {
		return nil, err
	}

	series, err := loadSeries(ctx, s.candleRepo, req.Candles, req.Series)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load bars for optimization", logger.ErrorField(err))
		return nil, err
	}

	run := &gaRun{
		ga:       ga,
		params:   params,
		rng:      rand.New(rand.NewSource(ga.Seed)),
		evaluate: s.evaluator(series, req.Strategy, params, req.InitialCapital),
	}

	s.log.InfoContext(ctx, "Starting genetic optimization",
		logger.StringField("strategy", req.Strategy.Name),
		logger.IntField("bars", series.Len()),
		logger.IntField("parameters", len(params)),
		logger.IntField("population", ga.PopulationSize),
		logger.IntField("generations", ga.Generations),
		logger.IntField("workers", ga.MaxWorkers),
		logger.Field("seed", ga.Seed),
	)

	result := run.optimize(ctx, s.log)
	result.RunID = ulid.Make().String()

	s.log.InfoContext(ctx, "Genetic optimization finished",
		logger.StringField("run_id", result.RunID),
		logger.FloatField("best_fitness", utils.Finite(result.BestFitness)),
		logger.IntField("evaluations", result.Evaluations),
		logger.BoolField("cancelled", result.Cancelled),
	)
	return result, nil
}

// normalizeParams validates the parameter list and defaults the int step to 1.
func (s *optimizerService) normalizeParams(params []dto.ParamRange) ([]dto.ParamRange, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: no parameters to optimize", ErrInvalidParamRange)
	}
	seen := make(map[string]bool, len(params))
	out := make([]dto.ParamRange, len(params))
	for i, p := range params {
		if err := s.validator.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: parameter %d: %v", ErrInvalidParamRange, i, err)
		}
		if math.IsNaN(p.Min) || math.IsInf(p.Min, 0) || math.IsNaN(p.Max) || math.IsInf(p.Max, 0) {
			return nil, fmt.Errorf("%w: parameter %q has a non-finite range", ErrInvalidParamRange, p.Path)
		}
		if seen[p.Path] {
			return nil, fmt.Errorf("%w: parameter %q is listed twice", ErrInvalidParamRange, p.Path)
		}
		seen[p.Path] = true
		if p.Type == dto.ParamTypeInt {
			if math.Ceil(p.Min) > math.Floor(p.Max) {
				return nil, fmt.Errorf("%w: parameter %q has no integer in [%g, %g]", ErrInvalidParamRange, p.Path, p.Min, p.Max)
			}
			if p.Step <= 0 {
				p.Step = 1
			}
		}
		out[i] = p
	}
	return out, nil
}

// evaluator scores one parameter set. Any failure, panics included, scores -Inf.
func (s *optimizerService) evaluator(series *dto.BarSeries, strategy dto.StrategyConfig, params []dto.ParamRange, capital float64) func(context.Context, map[string]float64) float64 {
	return func(ctx context.Context, values map[string]float64) float64 {
		var score float64
		err := utils.SafeCall(func() error {
			cfg, err := applyParams(strategy, params, values)
			if err != nil {
				return err
			}
			res, err := s.backtest.Evaluate(ctx, series, cfg, capital)
			if err != nil {
				return err
			}
			score = fitness(res.Statistics)
			return nil
		})
		if err != nil {
			s.log.DebugContext(ctx, "Evaluation failed", logger.ErrorField(err), logger.Field("params", values))
			return math.Inf(-1)
		}
		return score
	}
}

func fitness(st dto.Statistics) float64 {
	return st.TotalReturn*0.4 + st.WinRate*0.3 + st.ProfitFactor*10*0.2 - math.Abs(st.MaxDrawdown)*0.1
}

// applyParams writes each value at its dotted path in a copy of the strategy
// document and decodes the result.
func applyParams(strategy dto.StrategyConfig, params []dto.ParamRange, values map[string]float64) (dto.StrategyConfig, error) {
	tree, err := decoder.ToTree(strategy)
	if err != nil {
		return dto.StrategyConfig{}, err
	}
	for _, p := range params {
		v, ok := values[p.Path]
		if !ok {
			return dto.StrategyConfig{}, fmt.Errorf("no value for parameter %q", p.Path)
		}
		var value interface{} = v
		if p.Type == dto.ParamTypeInt {
			value = int(math.Round(v))
		}
		if err := decoder.Set(tree, p.Path, value); err != nil {
			return dto.StrategyConfig{}, err
		}
	}

	var out dto.StrategyConfig
	if err := decoder.Decode(tree, &out); err != nil {
		return dto.StrategyConfig{}, err
	}
	return out, nil
}

// gaRun holds the state of one optimization. The rng is only touched from
// the goroutine running optimize; evaluations run on the worker pool.
type gaRun struct {
	ga          dto.GAConfig
	params      []dto.ParamRange
	rng         *rand.Rand
	evaluate    func(context.Context, map[string]float64) float64
	evaluations atomic.Int64
}

func (r *gaRun) optimize(ctx context.Context, log *logger.Logger) *dto.OptimizeResult {
	result := &dto.OptimizeResult{
		History:     []dto.GenerationStat{},
		BestFitness: math.Inf(-1),
	}

	pop := make([]dto.Individual, r.ga.PopulationSize)
	for i := range pop {
		pop[i] = dto.Individual{Params: r.randomParams()}
	}
	cancelled := !r.evaluateAll(ctx, pop)
	r.rank(pop, result)

	elites := int(r.ga.ElitismPct * float64(r.ga.PopulationSize))
	for gen := 1; gen <= r.ga.Generations && !cancelled; gen++ {
		if !utils.ShouldContinue(ctx, log) {
			cancelled = true
			break
		}

		next := r.breed(pop, elites)
		cancelled = !r.evaluateAll(ctx, next[elites:])
		pop = next
		r.rank(pop, result)
		if cancelled {
			break
		}

		stat := generationStat(gen, pop)
		result.History = append(result.History, stat)
		log.DebugContext(ctx, "Generation evaluated",
			logger.IntField("generation", gen),
			logger.FloatField("best", utils.Finite(stat.BestFitness)),
			logger.FloatField("avg", utils.Finite(stat.AvgFitness)),
		)
	}

	result.Cancelled = cancelled
	result.FinalPopulation = pop
	result.Evaluations = int(r.evaluations.Load())
	return result
}

// evaluateAll scores pop in place on a bounded worker pool. It reports false
// when the context ended before every individual was scored.
func (r *gaRun) evaluateAll(ctx context.Context, pop []dto.Individual) bool {
	for i := range pop {
		pop[i].Fitness = math.Inf(-1)
	}

	g := new(errgroup.Group)
	g.SetLimit(r.ga.MaxWorkers)
	for i := range pop {
		if ctx.Err() != nil {
			break
		}
		ind := &pop[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			ind.Fitness = r.evaluate(ctx, ind.Params)
			r.evaluations.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err() == nil
}

// rank sorts pop best first and records a new best-ever individual.
func (r *gaRun) rank(pop []dto.Individual, result *dto.OptimizeResult) {
	sort.SliceStable(pop, func(i, j int) bool { return pop[i].Fitness > pop[j].Fitness })
	if len(pop) == 0 {
		return
	}
	if result.BestParams == nil || pop[0].Fitness > result.BestFitness {
		result.BestParams = copyParams(pop[0].Params)
		result.BestFitness = pop[0].Fitness
	}
}

// breed builds the next generation: the elites unchanged with their fitness,
// the rest from tournament selection, crossover and mutation.
func (r *gaRun) breed(pop []dto.Individual, elites int) []dto.Individual {
	next := make([]dto.Individual, 0, len(pop))
	for i := 0; i < elites && i < len(pop); i++ {
		next = append(next, dto.Individual{Params: copyParams(pop[i].Params), Fitness: pop[i].Fitness})
	}
	for len(next) < len(pop) {
		a, b := r.crossover(r.tournament(pop).Params, r.tournament(pop).Params)
		next = append(next, dto.Individual{Params: r.mutate(a)})
		if len(next) < len(pop) {
			next = append(next, dto.Individual{Params: r.mutate(b)})
		}
	}
	return next
}

// tournament picks the fittest of up to tournamentSize distinct individuals.
func (r *gaRun) tournament(pop []dto.Individual) dto.Individual {
	k := min(tournamentSize, len(pop))
	picks := r.rng.Perm(len(pop))[:k]
	best := pop[picks[0]]
	for _, i := range picks[1:] {
		if pop[i].Fitness > best.Fitness {
			best = pop[i]
		}
	}
	return best
}

// crossover mixes the parents gene by gene. With probability 1-rate the
// children are plain copies.
func (r *gaRun) crossover(a, b map[string]float64) (map[string]float64, map[string]float64) {
	c1, c2 := copyParams(a), copyParams(b)
	if r.rng.Float64() >= r.ga.CrossoverRate {
		return c1, c2
	}
	for _, p := range r.params {
		if r.rng.Float64() < 0.5 {
			c1[p.Path], c2[p.Path] = b[p.Path], a[p.Path]
		}
	}
	return c1, c2
}

func (r *gaRun) mutate(values map[string]float64) map[string]float64 {
	for _, p := range r.params {
		if r.rng.Float64() >= r.ga.MutationRate {
			continue
		}
		if p.Type == dto.ParamTypeInt {
			values[p.Path] = r.randomValue(p)
			continue
		}
		sigma := (p.Max - p.Min) * mutationSigmaRatio
		values[p.Path] = math.Min(p.Max, math.Max(p.Min, values[p.Path]+r.rng.NormFloat64()*sigma))
	}
	return values
}

func (r *gaRun) randomParams() map[string]float64 {
	values := make(map[string]float64, len(r.params))
	for _, p := range r.params {
		values[p.Path] = r.randomValue(p)
	}
	return values
}

// randomValue draws ints from the step grid in [min, max] and floats
// uniformly from [min, max]. Rounded ints stay inside the integer bounds of
// the range.
func (r *gaRun) randomValue(p dto.ParamRange) float64 {
	if p.Type != dto.ParamTypeInt {
		return p.Min + r.rng.Float64()*(p.Max-p.Min)
	}
	steps := int(math.Floor((p.Max-p.Min)/p.Step + 1e-9))
	v := math.Round(p.Min + float64(r.rng.Intn(steps+1))*p.Step)
	return math.Min(math.Floor(p.Max), math.Max(math.Ceil(p.Min), v))
}

func generationStat(gen int, pop []dto.Individual) dto.GenerationStat {
	stat := dto.GenerationStat{
		Generation:   gen,
		BestFitness:  pop[0].Fitness,
		WorstFitness: pop[len(pop)-1].Fitness,
		AvgFitness:   math.Inf(-1),
	}
	var sum float64
	var n int
	for _, ind := range pop {
		if math.IsInf(ind.Fitness, 0) || math.IsNaN(ind.Fitness) {
			continue
		}
		sum += ind.Fitness
		n++
	}
	if n > 0 {
		stat.AvgFitness = sum / float64(n)
	}
	return stat
}

func copyParams(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
