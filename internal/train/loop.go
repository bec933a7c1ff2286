// Package train drives the epoch-based training and validation of the sequence
// model with a masked cross-entropy objective.
package train

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ppiankov/brevis/internal/dataset"
	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/logger"
	"github.com/ppiankov/brevis/internal/model"
	"github.com/ppiankov/brevis/internal/nn"
)

// Target modes.
const (
	TargetNext     = model.TargetNext
	TargetIdentity = model.TargetIdentity
)

// Phases reported in TrainingStep errors.
const (
	PhaseTrain      = "train"
	PhaseValidation = "validation"
)

// Model is the trainable sequence function.
type Model interface {
	Forward(inputs [][]int) (Trace, error)
}

// Trace is one forward pass over a batch, kept for backpropagation.
type Trace interface {
	// Steps returns the number of positions in the batch.
	Steps() int
	// Logits returns the batch×vocab scores for position t.
	Logits(t int) *mat.Dense
	// AddOutputGrad accumulates the loss gradient for the logits of position t.
	AddOutputGrad(t int, grad *mat.Dense)
	// Backward propagates the accumulated gradients into the parameters.
	Backward()
}

var _ Trace = (*nn.Trace)(nil)

type rnnModel struct {
	net *nn.RNN
}

// FromRNN adapts net to Model.
func FromRNN(net *nn.RNN) Model {
	return rnnModel{net: net}
}

func (m rnnModel) Forward(inputs [][]int) (Trace, error) {
	tr, err := m.net.Forward(inputs)
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// Optimizer applies accumulated gradients.
type Optimizer interface {
	ZeroGrad()
	Step() float64
}

// Batches yields the batches of one epoch. dataset.Loader implements it.
type Batches interface {
	Epoch() []dataset.Batch
	NumBatches() int
}

// Options configures a Loop.
type Options struct {
	Epochs   int
	Target   string
	PadIndex int
}

// EpochStats summarizes one completed epoch.
type EpochStats struct {
	Epoch           int
	TrainLoss       float64
	ValidationLoss  float64
	TrainSteps      int
	ValidationSteps int
	Duration        time.Duration
}

// Loop runs Epoch{1..N}, each a training sub-epoch followed by a validation
// sub-epoch. Any failure inside a step ends the whole run.
type Loop struct {
	model Model
	opt   Optimizer
	opts  Options
	log   logger.Logger
}

// NewLoop creates a training loop.
func NewLoop(m Model, opt Optimizer, opts Options, log logger.Logger) (*Loop, error) {
	if opts.Epochs < 1 {
		return nil, errors.NewInvalidInput(fmt.Sprintf("epochs must be at least 1, got %d", opts.Epochs))
	}
	switch opts.Target {
	case "":
		opts.Target = TargetNext
	case TargetNext, TargetIdentity:
	default:
		return nil, errors.NewInvalidInput(fmt.Sprintf("unknown target mode %q", opts.Target))
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Loop{model: m, opt: opt, opts: opts, log: log}, nil
}

// Run trains over trainSet and validates over validationSet after every
// epoch. A nil validationSet validates over trainSet. The context is checked
// between steps.
func (l *Loop) Run(ctx context.Context, trainSet, validationSet Batches) ([]EpochStats, error) {
	if trainSet.NumBatches() == 0 {
		return nil, errors.NewCorpusEmpty("training set")
	}
	if validationSet == nil {
		validationSet = trainSet
	}

	l.log.Info("Training started",
		logger.Int("epochs", l.opts.Epochs),
		logger.Int("train_batches", trainSet.NumBatches()),
		logger.Int("validation_batches", validationSet.NumBatches()),
		logger.String("target", l.opts.Target),
	)

	history := make([]EpochStats, 0, l.opts.Epochs)
	for epoch := 1; epoch <= l.opts.Epochs; epoch++ {
		start := time.Now()

		trainLoss, trainSteps, err := l.runPhase(ctx, epoch, PhaseTrain, trainSet)
		if err != nil {
			return history, err
		}
		valLoss, valSteps, err := l.runPhase(ctx, epoch, PhaseValidation, validationSet)
		if err != nil {
			return history, err
		}

		stats := EpochStats{
			Epoch:           epoch,
			TrainLoss:       trainLoss,
			ValidationLoss:  valLoss,
			TrainSteps:      trainSteps,
			ValidationSteps: valSteps,
			Duration:        time.Since(start),
		}
		history = append(history, stats)

		l.log.Info("Epoch complete",
			logger.Int("epoch", epoch),
			logger.Int("epochs", l.opts.Epochs),
			logger.Float64("train_loss", stats.TrainLoss),
			logger.Float64("validation_loss", stats.ValidationLoss),
			logger.Int("steps", stats.TrainSteps),
			logger.Duration("duration", stats.Duration),
		)
	}
	return history, nil
}

// runPhase returns the mean step loss over one pass of batches.
func (l *Loop) runPhase(ctx context.Context, epoch int, phase string, batches Batches) (float64, int, error) {
	var total float64
	steps := 0
	for i, batch := range batches.Epoch() {
		if err := ctx.Err(); err != nil {
			return 0, steps, fmt.Errorf("training interrupted at epoch %d: %w", epoch, err)
		}
		loss, err := l.step(batch, phase == PhaseTrain)
		if err != nil {
			l.log.Error("Training step failed",
				logger.Int("epoch", epoch),
				logger.Int("step", i+1),
				logger.String("phase", phase),
				logger.Error(err),
			)
			return 0, steps, errors.NewTrainingStep(epoch, i+1, phase, err)
		}
		total += loss
		steps++
	}
	if steps == 0 {
		return 0, 0, nil
	}
	return total / float64(steps), steps, nil
}

// step computes the masked loss of one batch and, when update is set,
// backpropagates and applies the optimizer. A batch without a single
// non-pad target has loss 0 and leaves the parameters untouched.
func (l *Loop) step(batch dataset.Batch, update bool) (loss float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if update {
		l.opt.ZeroGrad()
	}
	tr, err := l.model.Forward(batch.Inputs)
	if err != nil {
		return 0, err
	}

	targets := Targets(batch.Inputs, l.opts.Target, l.opts.PadIndex)
	n := countTargets(targets, l.opts.PadIndex)
	if n == 0 {
		return 0, nil
	}
	scale := 1 / float64(n)

	var sum float64
	for t := 0; t < tr.Steps(); t++ {
		s, _, grad := MaskedCrossEntropy(tr.Logits(t), column(targets, t), l.opts.PadIndex, scale)
		sum += s
		if update {
			tr.AddOutputGrad(t, grad)
		}
	}
	if update {
		tr.Backward()
		l.opt.Step()
	}
	return sum * scale, nil
}

// Train builds loaders from the configuration, trains a fresh network on
// trainSet and returns it with the epoch history. validationSet may be nil.
func Train(ctx context.Context, trainSet, validationSet *dataset.Dataset, cfg *model.Config, log logger.Logger) (*nn.RNN, []EpochStats, error) {
	if log == nil {
		log = logger.NewNop()
	}
	opts := dataset.LoaderOptions{
		BatchSize: cfg.Batch.Size,
		Shuffle:   cfg.Batch.Shuffle,
		DropLast:  cfg.Batch.DropLast,
		Seed:      cfg.Batch.Seed,
	}
	trainLoader, err := dataset.NewLoader(trainSet, opts)
	if err != nil {
		return nil, nil, err
	}
	var validation Batches
	if validationSet != nil {
		opts.Shuffle = false
		validation, err = dataset.NewLoader(validationSet, opts)
		if err != nil {
			return nil, nil, err
		}
	}

	shape := nn.Shape{
		VocabSize:  trainSet.PadIndex() + 1,
		EmbedSize:  cfg.Model.EmbedSize,
		HiddenSize: cfg.Model.HiddenSize,
	}
	net, err := nn.NewRNN(shape, rand.New(rand.NewSource(cfg.Batch.Seed)))
	if err != nil {
		return nil, nil, err
	}
	log.Info("Model initialized", logger.String("shape", shape.String()))

	adamCfg := nn.DefaultAdamConfig(cfg.Train.LearningRate)
	adamCfg.ClipNorm = cfg.Train.GradClip
	opt := nn.NewAdam(net.Params(), adamCfg)

	loop, err := NewLoop(FromRNN(net), opt, Options{
		Epochs:   cfg.Train.Epochs,
		Target:   cfg.Train.Target,
		PadIndex: trainSet.PadIndex(),
	}, log)
	if err != nil {
		return nil, nil, err
	}

	history, err := loop.Run(ctx, trainLoader, validation)
	if err != nil {
		return nil, history, err
	}
	return net, history, nil
}
