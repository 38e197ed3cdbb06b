package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/finbank-cleanse/pkg/cleaner"
	"github.com/David-Botos/finbank-cleanse/pkg/connector"
	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

// maxBindParams is the PostgreSQL limit of bind parameters per statement
const maxBindParams = 65535

// runEnv carries what every entity step of a run shares
type runEnv struct {
	tx             *sqlx.Tx
	target         connector.DatabaseConnector
	source         connector.DatabaseConnector // nil when raw rows are read inside tx
	rawSchema      string
	cleansedSchema string
	chunkSize      int
	loadedAt       time.Time
	logger         *zap.Logger
}

// step replaces the cleansed extent of one entity
type step interface {
	entity() model.Entity
	run(ctx context.Context, env *runEnv) (*EntityResult, error)
}

// entityStep binds a cleansing stage to its table layout
type entityStep[R any, C model.Record] struct {
	stage cleaner.Stage[R, C]
	table *model.Table
}

func newStep[R any, C model.Record](stage cleaner.Stage[R, C]) step {
	table, ok := model.TableFor(stage.Entity)
	if !ok {
		panic(fmt.Sprintf("no table metadata for entity %q", stage.Entity))
	}
	return &entityStep[R, C]{stage: stage, table: table}
}

func (s *entityStep[R, C]) entity() model.Entity {
	return s.stage.Entity
}

func (s *entityStep[R, C]) run(ctx context.Context, env *runEnv) (*EntityResult, error) {
	entity := s.stage.Entity
	result := newEntityResult(entity)
	logger := env.logger.With(zap.String("entity", string(entity)))

	savepoint := pq.QuoteIdentifier("load_" + string(entity))
	if _, err := env.tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		result.complete(false)
		return result, &LoadError{Entity: entity, Phase: PhaseBegin, Err: fmt.Errorf("failed to create savepoint: %w", err)}
	}

	loaded, err := s.replace(ctx, env, result, logger)
	if err != nil {
		if _, rbErr := env.tx.ExecContext(context.WithoutCancel(ctx), "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			logger.Warn("Failed to roll back to savepoint", zap.Error(rbErr))
		}
		result.complete(false)
		logger.Error("Entity load failed",
			zap.Duration("duration", time.Since(result.StartTime)),
			zap.Error(err))
		return result, err
	}

	if _, err := env.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		result.complete(false)
		return result, &LoadError{Entity: entity, Phase: PhaseCommit, Err: fmt.Errorf("failed to release savepoint: %w", err)}
	}

	result.RowsLoaded = loaded
	result.complete(true)

	logger.Info("Entity load completed",
		zap.Int("rowsRead", result.RowsRead),
		zap.Int64("rowsLoaded", result.RowsLoaded),
		zap.Int("duplicatesDropped", result.DuplicatesDropped),
		zap.Int("missingKeys", result.MissingKeys),
		zap.Int("anomalies", result.AnomalyTotal()),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// replace reads, cleanses, clears and repopulates the entity
func (s *entityStep[R, C]) replace(
	ctx context.Context,
	env *runEnv,
	result *EntityResult,
	logger *zap.Logger,
) (int64, error) {
	entity := s.stage.Entity

	raw, err := s.read(ctx, env)
	if err != nil {
		return 0, &LoadError{Entity: entity, Phase: PhaseRead, Err: err}
	}

	cleansed := cleaner.Run(s.stage, raw, env.loadedAt)
	result.RowsRead = cleansed.RowsRead
	result.MissingKeys = cleansed.MissingKeys
	result.DuplicatesDropped = cleansed.DuplicatesDropped
	result.Anomalies = model.CountByReason(cleansed.Anomalies)

	if logger.Core().Enabled(zap.DebugLevel) {
		for _, a := range cleansed.Anomalies {
			logger.Debug("Cleansing anomaly",
				zap.Stringer("anomaly", a),
				zap.Stringer("category", a.Category()))
		}
	}

	target := env.target.QualifiedName(env.cleansedSchema, string(entity))
	if _, err := env.tx.ExecContext(ctx, "TRUNCATE TABLE "+target); err != nil {
		return 0, &LoadError{Entity: entity, Phase: PhaseClear, Err: fmt.Errorf("failed to clear %s: %w", target, err)}
	}

	loaded, err := s.insert(ctx, env, target, cleansed.Rows)
	if err != nil {
		return loaded, &LoadError{Entity: entity, Phase: PhaseInsert, Err: err}
	}
	return loaded, nil
}

// read loads the full raw extent of the entity
func (s *entityStep[R, C]) read(ctx context.Context, env *runEnv) ([]R, error) {
	var queryer sqlx.QueryerContext = env.tx
	src := env.target
	if env.source != nil {
		queryer = env.source.DB()
		src = env.source
	}

	query := fmt.Sprintf("SELECT %s FROM %s",
		src.SelectList(s.table.ColumnNames()),
		src.QualifiedName(env.rawSchema, string(s.stage.Entity)))

	var raw []R
	if err := sqlx.SelectContext(ctx, queryer, &raw, query); err != nil {
		return nil, fmt.Errorf("failed to read raw %s: %w", s.stage.Entity, err)
	}
	return raw, nil
}

// insert writes cleansed rows with multi-row INSERT statements
func (s *entityStep[R, C]) insert(ctx context.Context, env *runEnv, target string, rows []C) (int64, error) {
	columns := s.table.CleansedColumnNames()
	size := chunkSize(env.chunkSize, len(columns))

	var inserted int64
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query, args := buildInsert(target, env.target.SelectList(columns), len(columns), chunk)
		res, err := env.tx.ExecContext(ctx, env.tx.Rebind(query), args...)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert rows %d-%d into %s: %w", start, end-1, target, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			n = int64(len(chunk))
		}
		inserted += n
	}

	if inserted != int64(len(rows)) {
		return inserted, fmt.Errorf("inserted %d rows into %s, expected %d", inserted, target, len(rows))
	}
	return inserted, nil
}

// buildInsert renders one INSERT with a placeholder tuple per row
func buildInsert[C model.Record](target, columnList string, width int, rows []C) (string, []interface{}) {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(target)
	sb.WriteString(" (")
	sb.WriteString(columnList)
	sb.WriteString(") VALUES ")

	args := make([]interface{}, 0, len(rows)*width)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tuple)
		args = append(args, row.Values()...)
	}
	return sb.String(), args
}

// chunkSize caps the configured chunk so a statement stays under the bind parameter limit
func chunkSize(configured, width int) int {
	limit := maxBindParams / width
	if configured <= 0 || configured > limit {
		return limit
	}
	return configured
}
