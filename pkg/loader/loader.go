// pkg/loader/loader.go
package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/finbank-cleanse/pkg/cleaner"
	"github.com/David-Botos/finbank-cleanse/pkg/connector"
	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

// Options configures a Loader
type Options struct {
	RawSchema      string
	CleansedSchema string
	ChunkSize      int
	Timeout        time.Duration // Zero means no run deadline beyond the caller's context
}

// Loader replaces every cleansed extent from its raw extent inside one outer transaction
type Loader struct {
	target  connector.DatabaseConnector
	source  connector.DatabaseConnector
	steps   []step
	opts    Options
	metrics *Metrics
	logger  *zap.Logger

	stateLock sync.RWMutex
	state     RunState
	current   model.Entity
}

// NewLoader creates a loader for all entities in load order. The cleansed layer is written
// through target. When source is nil or the same connector as target, raw rows are read
// inside the run transaction.
func NewLoader(
	target connector.DatabaseConnector,
	source connector.DatabaseConnector,
	dc *cleaner.DataCleaner,
	opts Options,
	metrics *Metrics,
	logger *zap.Logger,
) *Loader {
	if logger == nil {
		logger = zap.L()
	}
	if source == target {
		source = nil
	}

	return &Loader{
		target:  target,
		source:  source,
		steps:   stepsFor(dc, model.LoadOrder),
		opts:    opts,
		metrics: metrics,
		logger:  logger.Named("loader"),
		state:   RunStateIdle,
	}
}

// WithEntities restricts the run to the given entities, still in load order
func (l *Loader) WithEntities(entities ...model.Entity) *Loader {
	wanted := make(map[model.Entity]bool, len(entities))
	for _, e := range entities {
		wanted[e] = true
	}

	filtered := make([]step, 0, len(entities))
	for _, s := range l.steps {
		if wanted[s.entity()] {
			filtered = append(filtered, s)
		}
	}
	l.steps = filtered
	return l
}

// stepsFor returns the entity steps of the given entities in the order given
func stepsFor(dc *cleaner.DataCleaner, entities []model.Entity) []step {
	steps := make([]step, 0, len(entities))
	for _, e := range entities {
		switch e {
		case model.EntityBranch:
			steps = append(steps, newStep(dc.Branches()))
		case model.EntityCustomer:
			steps = append(steps, newStep(dc.Customers()))
		case model.EntityAccount:
			steps = append(steps, newStep(dc.Accounts()))
		case model.EntityTransaction:
			steps = append(steps, newStep(dc.Transactions()))
		case model.EntityLoan:
			steps = append(steps, newStep(dc.Loans()))
		case model.EntityCreditCard:
			steps = append(steps, newStep(dc.CreditCards()))
		}
	}
	return steps
}

// GetState returns the current run state and, while running, the entity in progress
func (l *Loader) GetState() (RunState, model.Entity) {
	l.stateLock.RLock()
	defer l.stateLock.RUnlock()
	return l.state, l.current
}

// setState updates the run state
func (l *Loader) setState(state RunState, entity model.Entity) {
	l.stateLock.Lock()
	defer l.stateLock.Unlock()

	prevState, prevEntity := l.state, l.current
	l.state = state
	l.current = entity

	if prevState != state || prevEntity != entity {
		l.logger.Debug("Run state changed",
			zap.String("from", string(prevState)),
			zap.String("to", string(state)),
			zap.String("entity", string(entity)))
	}
}

// tryStart moves the loader into the running state unless a run is already active
func (l *Loader) tryStart() bool {
	l.stateLock.Lock()
	defer l.stateLock.Unlock()

	if l.state == RunStateRunning {
		return false
	}
	l.state = RunStateRunning
	l.current = ""
	return true
}

// Run executes one load run. The returned report is non-nil whenever the run started, and
// on failure it carries the error descriptor alongside the returned error.
func (l *Loader) Run(ctx context.Context) (*RunReport, error) {
	if len(l.steps) == 0 {
		return nil, ErrNoEntities
	}
	if !l.tryStart() {
		return nil, ErrRunInProgress
	}

	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	now := time.Now()
	report := &RunReport{
		RunID:     uuid.New().String(),
		State:     RunStateRunning,
		LoadedAt:  now.UTC(),
		StartTime: now,
		Entities:  make([]*EntityResult, 0, len(l.steps)),
	}
	logger := l.logger.With(zap.String("runID", report.RunID))

	logger.Info("Starting load run",
		zap.Int("entities", len(l.steps)),
		zap.String("rawSchema", l.opts.RawSchema),
		zap.String("cleansedSchema", l.opts.CleansedSchema),
		zap.Bool("externalSource", l.source != nil))

	err := l.run(ctx, report, logger)

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	if err != nil {
		report.State = RunStateAborted
		report.Error = Describe(err)
		logger.Error("Load run aborted, all entities rolled back",
			zap.Duration("duration", report.Duration),
			zap.String("code", report.Error.Code),
			zap.String("state", report.Error.State),
			zap.Error(err))
	} else {
		report.State = RunStateCommitted
		logger.Info("Load run committed",
			zap.Duration("duration", report.Duration),
			zap.Int64("rowsLoaded", report.TotalRowsLoaded()))
	}
	l.setState(report.State, "")

	if l.metrics != nil {
		l.metrics.RecordRun(report)
	}
	return report, err
}

// run performs every entity step in one transaction
func (l *Loader) run(ctx context.Context, report *RunReport, logger *zap.Logger) error {
	tx, err := l.target.DB().BeginTxx(ctx, nil)
	if err != nil {
		return &LoadError{Phase: PhaseBegin, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Warn("Failed to roll back transaction", zap.Error(rbErr))
		}
	}()

	env := &runEnv{
		tx:             tx,
		target:         l.target,
		source:         l.source,
		rawSchema:      l.opts.RawSchema,
		cleansedSchema: l.opts.CleansedSchema,
		chunkSize:      l.opts.ChunkSize,
		loadedAt:       report.LoadedAt,
		logger:         logger,
	}

	for _, s := range l.steps {
		l.setState(RunStateRunning, s.entity())

		result, err := s.run(ctx, env)
		report.Entities = append(report.Entities, result)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return &LoadError{Phase: PhaseCommit, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}
	committed = true
	return nil
}
