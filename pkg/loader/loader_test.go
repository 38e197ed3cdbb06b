package loader

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/finbank-cleanse/pkg/cleaner"
	"github.com/David-Botos/finbank-cleanse/pkg/connector"
	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

var testOptions = Options{RawSchema: "bronze", CleansedSchema: "silver", ChunkSize: 1000}

func newMockTarget(t *testing.T) (*connector.PostgresConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return connector.NewPostgresConnectorFromDB(db, "finbank"), mock
}

func branchColumns(t *testing.T) []string {
	t.Helper()
	table, ok := model.TableFor(model.EntityBranch)
	require.True(t, ok)
	return table.ColumnNames()
}

func customerColumns(t *testing.T) []string {
	t.Helper()
	table, ok := model.TableFor(model.EntityCustomer)
	require.True(t, ok)
	return table.ColumnNames()
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

func expectBranchRead(t *testing.T, mock sqlmock.Sqlmock) {
	opened := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(branchColumns(t)).
		AddRow("B001", " Main St ", "Austin", "tx", "78701", 30.27, -97.74, opened, "1500000.00", int64(25)).
		AddRow("B001", "Main St (old)", "Austin", "TX", "78701", 30.27, -97.74, opened.AddDate(-5, 0, 0), "900000.00", int64(20)).
		AddRow("B002", "Lakeside", "Dallas", "TX", "75201", 32.78, -96.80, opened, "-10.00", nil)

	mock.ExpectExec(q(`SAVEPOINT "load_branches"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(`FROM "bronze"."branches"`)).WillReturnRows(rows)
	mock.ExpectExec(q(`TRUNCATE TABLE "silver"."branches"`)).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestLoaderRunCommits(t *testing.T) {
	target, mock := newMockTarget(t)
	metrics := NewMetrics()

	mock.ExpectBegin()
	expectBranchRead(t, mock)
	mock.ExpectExec(q(`INSERT INTO "silver"."branches" ("branch_id", `)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q(`RELEASE SAVEPOINT "load_branches"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	l := NewLoader(target, target, cleaner.NewDataCleaner(cleaner.Options{}), testOptions, metrics, zap.NewNop()).
		WithEntities(model.EntityBranch)

	report, err := l.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, RunStateCommitted, report.State)
	assert.True(t, report.Succeeded())
	assert.NotEmpty(t, report.RunID)
	assert.Nil(t, report.Error)
	require.Len(t, report.Entities, 1)

	branches := report.Entities[0]
	assert.True(t, branches.Success)
	assert.Equal(t, 3, branches.RowsRead)
	assert.Equal(t, int64(2), branches.RowsLoaded)
	assert.Equal(t, 1, branches.DuplicatesDropped)
	assert.Equal(t, 1, branches.Anomalies[model.ReasonDuplicateKey])
	assert.Equal(t, 1, branches.Anomalies[model.ReasonClampedNegative])
	assert.Equal(t, 1, branches.Anomalies[model.ReasonClampedNull])

	state, current := l.GetState()
	assert.Equal(t, RunStateCommitted, state)
	assert.Empty(t, current)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("committed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RowsLoaded.WithLabelValues("branches")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DuplicatesDropped.WithLabelValues("branches")))
	assert.NotZero(t, testutil.ToFloat64(metrics.LastSuccess))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoaderRunAbortsOnInsertFailure(t *testing.T) {
	target, mock := newMockTarget(t)
	metrics := NewMetrics()

	pgErr := &pgconn.PgError{Severity: "ERROR", Code: "23505", Message: "duplicate key value violates unique constraint"}

	mock.ExpectBegin()
	expectBranchRead(t, mock)
	mock.ExpectExec(q(`INSERT INTO "silver"."branches"`)).WillReturnError(pgErr)
	mock.ExpectExec(q(`ROLLBACK TO SAVEPOINT "load_branches"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	l := NewLoader(target, nil, cleaner.NewDataCleaner(cleaner.Options{}), testOptions, metrics, zap.NewNop())

	report, err := l.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, model.EntityBranch, loadErr.Entity)
	assert.Equal(t, PhaseInsert, loadErr.Phase)
	assert.Equal(t, model.ErrorCategoryLoadFailure, loadErr.Category())

	assert.Equal(t, RunStateAborted, report.State)
	require.NotNil(t, report.Error)
	assert.Equal(t, "23505", report.Error.Code)
	assert.Equal(t, "LoadFailure", report.Error.Category)
	assert.Equal(t, "ERROR", report.Error.State)
	assert.Equal(t, model.EntityBranch, report.Error.Entity)
	assert.Contains(t, report.Error.Message, "duplicate key")

	// The failing entity is the last one attempted
	require.Len(t, report.Entities, 1)
	assert.False(t, report.Entities[0].Success)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("aborted")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.RowsLoaded.WithLabelValues("branches")))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoaderRunRollsBackEarlierEntities(t *testing.T) {
	target, mock := newMockTarget(t)

	mock.ExpectBegin()
	expectBranchRead(t, mock)
	mock.ExpectExec(q(`INSERT INTO "silver"."branches"`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q(`RELEASE SAVEPOINT "load_branches"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec(q(`SAVEPOINT "load_customers"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(`FROM "bronze"."customers"`)).WillReturnRows(sqlmock.NewRows(customerColumns(t)))
	mock.ExpectExec(q(`TRUNCATE TABLE "silver"."customers"`)).
		WillReturnError(&pq.Error{Severity: "FATAL", Code: "42P01", Message: `relation "silver.customers" does not exist`})
	mock.ExpectExec(q(`ROLLBACK TO SAVEPOINT "load_customers"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	l := NewLoader(target, target, cleaner.NewDataCleaner(cleaner.Options{}), testOptions, nil, zap.NewNop()).
		WithEntities(model.EntityCustomer, model.EntityBranch)

	report, err := l.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, RunStateAborted, report.State)
	require.Len(t, report.Entities, 2)
	assert.Equal(t, model.EntityBranch, report.Entities[0].Entity)
	assert.True(t, report.Entities[0].Success)
	assert.Equal(t, model.EntityCustomer, report.Entities[1].Entity)
	assert.False(t, report.Entities[1].Success)

	require.NotNil(t, report.Error)
	assert.Equal(t, "42P01", report.Error.Code)
	assert.Equal(t, "FATAL", report.Error.State)
	assert.Equal(t, PhaseClear, report.Error.Phase)

	// Nothing was committed, so the branch step is undone with the outer transaction
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoaderRunReadFailure(t *testing.T) {
	target, mock := newMockTarget(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(`SAVEPOINT "load_branches"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(`FROM "bronze"."branches"`)).WillReturnError(errors.New("connection reset"))
	mock.ExpectExec(q(`ROLLBACK TO SAVEPOINT "load_branches"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	l := NewLoader(target, target, cleaner.NewDataCleaner(cleaner.Options{}), testOptions, nil, zap.NewNop()).
		WithEntities(model.EntityBranch)

	report, err := l.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, report.Error)
	assert.Empty(t, report.Error.Code)
	assert.Equal(t, string(PhaseRead), report.Error.State)
	assert.Contains(t, report.Error.Message, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoaderRunBeginFailure(t *testing.T) {
	target, mock := newMockTarget(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	l := NewLoader(target, target, cleaner.NewDataCleaner(cleaner.Options{}), testOptions, nil, zap.NewNop())

	report, err := l.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, RunStateAborted, report.State)
	assert.Empty(t, report.Entities)
	assert.Equal(t, PhaseBegin, report.Error.Phase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoaderRunWithoutEntities(t *testing.T) {
	target, _ := newMockTarget(t)
	l := NewLoader(target, target, cleaner.NewDataCleaner(cleaner.Options{}), testOptions, nil, zap.NewNop()).
		WithEntities()

	report, err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoEntities)
	assert.Nil(t, report)
}

func TestWithEntitiesKeepsLoadOrder(t *testing.T) {
	target, _ := newMockTarget(t)
	l := NewLoader(target, target, cleaner.NewDataCleaner(cleaner.Options{}), testOptions, nil, zap.NewNop()).
		WithEntities(model.EntityCreditCard, model.EntityBranch, model.EntityAccount)

	var got []model.Entity
	for _, s := range l.steps {
		got = append(got, s.entity())
	}
	assert.Equal(t, []model.Entity{model.EntityBranch, model.EntityAccount, model.EntityCreditCard}, got)
}

func TestChunkSize(t *testing.T) {
	tests := []struct {
		name       string
		configured int
		width      int
		want       int
	}{
		{"configured", 1000, 11, 1000},
		{"capped by bind limit", 10000, 11, 5957},
		{"unset", 0, 17, 3855},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunkSize(tt.configured, tt.width))
		})
	}
}

func TestBuildInsert(t *testing.T) {
	rows := []model.Branch{
		{BranchID: "B1", LoadTimestamp: time.Unix(0, 0)},
		{BranchID: "B2", LoadTimestamp: time.Unix(0, 0)},
	}
	query, args := buildInsert(`"silver"."branches"`, `"a", "b"`, 11, rows)

	assert.True(t, strings.HasPrefix(query, `INSERT INTO "silver"."branches" ("a", "b") VALUES (?, ?,`))
	assert.Equal(t, 2, strings.Count(query, "("+strings.TrimSuffix(strings.Repeat("?, ", 11), ", ")+")"))
	assert.Len(t, args, 22)
	assert.Equal(t, "B1", args[0])
	assert.Equal(t, "B2", args[11])
}
