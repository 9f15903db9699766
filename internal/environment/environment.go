// Package environment implements the multi-asset portfolio simulation used
// to collect episodes: a sequential reset/step state machine over a feature
// table with transaction costs and risk-aware reward shaping.
package environment

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/market"
	"github.com/aristath/deepfolio/internal/utils"
	"github.com/aristath/deepfolio/pkg/formulas"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotReset is returned by Step before the first Reset.
	ErrNotReset = errors.New("environment: step before reset")
	// ErrEpisodeTerminated is returned by Step once the episode has ended.
	ErrEpisodeTerminated = errors.New("environment: episode terminated")
	// ErrInvalidAction is returned for actions of the wrong length or with NaN/Inf entries.
	ErrInvalidAction = errors.New("environment: invalid action")
)

// State is the lifecycle position of an Env.
type State int

const (
	StateReady State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Info is the diagnostic record returned alongside every observation.
type Info struct {
	Step           int       `json:"step" msgpack:"step"`
	PortfolioValue float64   `json:"portfolio_value" msgpack:"portfolio_value"`
	Balance        float64   `json:"balance" msgpack:"balance"`
	Weights        []float64 `json:"weights" msgpack:"weights"`
	LastReturn     float64   `json:"last_return" msgpack:"last_return"`
	Sharpe         float64   `json:"sharpe" msgpack:"sharpe"`
}

// StepResult is the outcome of one Step. Truncated is always false.
type StepResult struct {
	Observation *mat.Dense
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

// Env is a single portfolio episode over a market.Table. It is not safe for
// concurrent use; run one Env per goroutine.
type Env struct {
	table  *market.Table
	cfg    config.EnvConfig
	shaper *RewardShaper
	log    zerolog.Logger

	totalSteps int

	state   State
	step    int
	value   float64
	weights []float64
	history *utils.RingBuffer
	seed    uint64
}

// New validates cfg against table. The table must hold at least
// window_size+2 rows so that an episode has one step.
func New(table *market.Table, cfg config.EnvConfig, log zerolog.Logger) (*Env, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", market.ErrInsufficientData)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	totalSteps := table.Len() - cfg.WindowSize - 1
	if totalSteps < 1 {
		return nil, fmt.Errorf("%w: %d rows cannot fit window %d plus one step",
			market.ErrInsufficientData, table.Len(), cfg.WindowSize)
	}

	return &Env{
		table:      table,
		cfg:        cfg,
		shaper:     NewRewardShaper(cfg),
		log:        log.With().Str("component", "environment").Logger(),
		totalSteps: totalSteps,
		state:      StateReady,
		history:    utils.NewRingBuffer(cfg.RewardWindowSize),
	}, nil
}

// NumAssets returns the action length.
func (e *Env) NumAssets() int { return e.table.NumAssets() }

// ObservationShape returns (window_size, num_assets·num_features_per_asset).
func (e *Env) ObservationShape() (rows, cols int) {
	return e.cfg.WindowSize, e.table.NumFeatures()
}

// TotalSteps is the episode length.
func (e *Env) TotalSteps() int { return e.totalSteps }

// State returns the current lifecycle state.
func (e *Env) State() State { return e.state }

// Seed returns the seed passed to the last Reset. The simulation itself is
// deterministic; the seed is recorded for episode bookkeeping.
func (e *Env) Seed() uint64 { return e.seed }

// Config returns the environment configuration.
func (e *Env) Config() config.EnvConfig { return e.cfg }

// Reset starts a new episode from any state.
func (e *Env) Reset(seed uint64) (*mat.Dense, Info, error) {
	obs, err := e.table.Window(0, e.cfg.WindowSize)
	if err != nil {
		return nil, Info{}, err
	}

	n := e.NumAssets()
	e.seed = seed
	e.step = 0
	e.value = e.cfg.InitialBalance
	e.weights = make([]float64, n)
	for i := range e.weights {
		e.weights[i] = 1 / float64(n)
	}
	e.history.Clear()
	e.state = StateRunning

	e.log.Info().
		Uint64("seed", seed).
		Int("total_steps", e.totalSteps).
		Float64("initial_balance", e.value).
		Msg("Episode started")

	return obs, e.Info(), nil
}

// Step applies action as the new target allocation and advances one bar.
// A rejected action leaves the environment unchanged.
func (e *Env) Step(action []float64) (StepResult, error) {
	switch e.state {
	case StateReady:
		return StepResult{}, ErrNotReset
	case StateTerminated:
		return StepResult{}, ErrEpisodeTerminated
	}
	if len(action) != e.NumAssets() {
		return StepResult{}, fmt.Errorf("%w: got %d weights, want %d", ErrInvalidAction, len(action), e.NumAssets())
	}
	if !formulas.AllFinite(action) {
		return StepResult{}, fmt.Errorf("%w: non-finite weight in %v", ErrInvalidAction, action)
	}

	weights := NormalizeAction(action)

	// Closes bracketing this step: the last observed bar and the next one.
	p0 := e.table.Closes(e.step + e.cfg.WindowSize - 1)
	p1 := e.table.Closes(e.step + e.cfg.WindowSize)
	obs, err := e.table.Window(e.step+1, e.cfg.WindowSize)
	if err != nil {
		return StepResult{}, err
	}

	cost := e.cfg.TransactionCostPct * TradedNotional(e.weights, weights, e.value)

	returns := make([]float64, len(p0))
	for i := range returns {
		returns[i] = (p1[i] - p0[i]) / (p0[i] + formulas.Epsilon)
	}
	stepReturn := floats.Dot(weights, returns)

	e.value = (e.value - cost) * (1 + stepReturn)
	e.weights = weights
	e.step++
	e.history.Push(stepReturn)

	reward := e.shaper.Reward(stepReturn, e.history.Values())
	terminated := e.step >= e.totalSteps
	if terminated {
		e.state = StateTerminated
	}

	info := e.Info()
	e.log.Debug().
		Int("step", e.step).
		Float64("portfolio_value", e.value).
		Float64("step_return", stepReturn).
		Float64("cost", cost).
		Float64("reward", reward).
		Msg("Step")

	if terminated {
		e.log.Info().
			Int("steps", e.step).
			Float64("portfolio_value", e.value).
			Float64("sharpe", info.Sharpe).
			Msg("Episode terminated")
	}

	return StepResult{
		Observation: obs,
		Reward:      reward,
		Terminated:  terminated,
		Info:        info,
	}, nil
}

// Info reports the current episode state.
func (e *Env) Info() Info {
	history := e.history.Values()
	last, _ := e.history.Last()
	return Info{
		Step:           e.step,
		PortfolioValue: e.value,
		Balance:        e.cfg.InitialBalance,
		Weights:        append([]float64(nil), e.weights...),
		LastReturn:     last,
		Sharpe:         e.shaper.Sharpe(history, e.history.Cap()),
	}
}

// Returns is the rolling per-step return history, oldest first.
func (e *Env) Returns() []float64 { return e.history.Values() }

// NormalizeAction maps a finite action onto the probability simplex: clip to
// [0,1], divide by the sum, clip again. An action with no positive entry
// becomes the uniform allocation.
func NormalizeAction(action []float64) []float64 {
	w := make([]float64, len(action))
	for i, v := range action {
		w[i] = formulas.Clip(v, 0, 1)
	}
	sum := floats.Sum(w)
	if sum <= formulas.Epsilon {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return w
	}
	for i := range w {
		w[i] = formulas.Clip(w[i]/(sum+formulas.Epsilon), 0, 1)
	}
	return w
}

// TradedNotional is Σ|new_i·V − old_i·V|.
func TradedNotional(oldWeights, newWeights []float64, value float64) float64 {
	var traded float64
	for i := range newWeights {
		traded += math.Abs(newWeights[i]*value - oldWeights[i]*value)
	}
	return traded
}
