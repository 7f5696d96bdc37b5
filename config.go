package gpso

import (
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"
)

// Schedule computes the exploration constant ς as a function of the
// number of GP-based samples currently in the Surrogate table.
// ConstSchedule and BetaSchedule below are the two supported variants.
type Schedule func(m int) float64

// ConstSchedule returns a Schedule that always yields varsigma,
// bypassing the theoretically-grounded BetaSchedule with a fixed
// exploration constant.
func ConstSchedule(varsigma float64) Schedule {
	return func(int) float64 { return varsigma }
}

// BetaSchedule returns the theoretically-grounded schedule
// ς(M) = sqrt(max(0, 4 ln(π M) - 2 ln(12 η))), where η is the
// probability that UCB <= f.
func BetaSchedule(eta float64) Schedule {
	return func(m int) float64 {
		if m < 1 {
			m = 1
		}
		v := 4*math.Log(math.Pi*float64(m)) - 2*math.Log(12*eta)
		if v < 0 {
			v = 0
		}
		return math.Sqrt(v)
	}
}

// IterationUpdate is the observer payload sent after each iteration,
// generalizing the teacher's ProgressUpdate to GPSO's vocabulary (XI,
// LB, selection count).
type IterationUpdate struct {
	Iteration    int
	XI           float64
	NSelected    int
	LB           float64
	Ne           int
	Ng           int
	TreeDepth    int
	RetrainEvent bool
}

// Hooks bundles the four synchronous observer callbacks
// (PostInitialise, PostIteration, PostUpdate, PreFinalise). Each is
// optional (nil is a no-op). Handlers must not mutate core state; an
// error or panic returned from a hook is surfaced wrapped as
// ErrObserver.
type Hooks struct {
	PostInitialise func(update IterationUpdate) error
	PostIteration  func(update IterationUpdate) error
	PostUpdate     func(indices []int) error
	PreFinalise    func(result Result) error
}

func (h Hooks) call(op string, fn func() error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = newError(ErrObserver, op, fmt.Errorf("hook panicked: %v", r))
		}
	}()
	if err := fn(); err != nil {
		return newError(ErrObserver, op, err)
	}
	return nil
}

// Config carries every recognized optimizer option, replacing variadic
// argument handling with a single struct.
type Config struct {
	// Sigma is the initial observation-noise standard deviation: hyp.lik
	// starts at log(Sigma) before the first train() call. Default 1e-4.
	Sigma float64

	// Eta is the probability that UCB <= f, feeding BetaSchedule.
	// Default 0.05. Ignored if Varsigma is nonzero.
	Eta float64

	// Varsigma, if nonzero, selects ConstSchedule(Varsigma) instead of
	// BetaSchedule(Eta).
	Varsigma float64

	// UPC is the retrain cadence constant. Default 2*d.
	UPC float64

	// NMax is the evaluation budget; must be at least 1. NMax == 1 runs
	// no iterations, since the initial center evaluation already brings
	// Ne to 1.
	NMax int

	// Verbose enables per-iteration debug logging.
	Verbose bool

	// MaxTrainIter bounds the GP hyperparameter optimizer's iterations.
	// Default 100.
	MaxTrainIter int

	// Logger receives structured log events. Defaults to a logger with
	// output discarded if nil.
	Logger *logrus.Logger

	// Hooks holds the observer callbacks.
	Hooks Hooks
}

// DefaultConfig returns a Config with sensible defaults, mirroring the
// teacher's DefaultConfig() constructor.
func DefaultConfig(dim int) Config {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return Config{
		Sigma:        1e-4,
		Eta:          0.05,
		UPC:          2 * float64(dim),
		NMax:         100,
		MaxTrainIter: 100,
		Logger:       logger,
	}
}

func (c Config) schedule() Schedule {
	if c.Varsigma != 0 {
		return ConstSchedule(c.Varsigma)
	}
	return BetaSchedule(c.Eta)
}

func (c Config) xiMax(dim int) float64 {
	switch {
	case dim < 10:
		return 8
	case dim < 20:
		return 5
	default:
		return 3
	}
}

func (c Config) validate() error {
	if c.NMax < 1 {
		return newError(ErrConfig, "Config.validate", errValueError("N_max must be at least 1"))
	}
	if c.UPC <= 0 {
		return newError(ErrConfig, "Config.validate", errValueError("upc must be positive"))
	}
	if c.Varsigma == 0 && c.Eta <= 0 {
		return newError(ErrConfig, "Config.validate", errValueError("eta must be positive when varsigma is unset"))
	}
	return nil
}

func (c *Config) logger() *logrus.Logger {
	if c.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		c.Logger = logger
	}
	return c.Logger
}
