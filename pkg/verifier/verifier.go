// pkg/verifier/verifier.go
package verifier

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/David-Botos/finbank-cleanse/pkg/cleaner"
	"github.com/David-Botos/finbank-cleanse/pkg/connector"
	"github.com/David-Botos/finbank-cleanse/pkg/model"
)

const nullText = "<null>"

// Options configures a Verifier
type Options struct {
	RawSchema      string
	CleansedSchema string
	Concurrency    int           // Entities verified in parallel by VerifyAll
	MaxViolations  int           // Rows returned per rule, zero for no limit
	Timeout        time.Duration // Per-entity deadline, zero for none
}

// Verifier runs the read-only quality rules against the raw or cleansed layer
type Verifier struct {
	raw      connector.DatabaseConnector
	cleansed connector.DatabaseConnector
	opts     Options
	logger   *zap.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(
	raw connector.DatabaseConnector,
	cleansed connector.DatabaseConnector,
	opts Options,
	logger *zap.Logger,
) *Verifier {
	if logger == nil {
		logger = zap.L()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Verifier{
		raw:      raw,
		cleansed: cleansed,
		opts:     opts,
		logger:   logger.Named("verifier"),
	}
}

// extent identifies the connector and schema holding one layer
func (v *Verifier) extent(layer model.Layer) (connector.DatabaseConnector, string, error) {
	switch layer {
	case model.LayerRaw:
		return v.raw, v.opts.RawSchema, nil
	case model.LayerCleansed:
		return v.cleansed, v.opts.CleansedSchema, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", model.ErrUnknownLayer, layer)
	}
}

// verification is the state of one Verify call shared by its rules
type verification struct {
	db     *sqlx.DB
	conn   connector.DatabaseConnector
	schema string
	table  *model.Table
	name   string // qualified table name
	report *Report
}

type rule struct {
	name  string
	check func(ctx context.Context, vf *verification) error
}

// rulesFor returns the rule set of an entity in evaluation order
func (v *Verifier) rulesFor(entity model.Entity) []rule {
	rules := []rule{
		{RuleRowCount, v.checkRowCount},
		{RulePrimaryKey, v.checkPrimaryKey},
		{RuleWhitespace, v.checkWhitespace},
		{RuleDomain, v.checkDomain},
		{RuleNumericDomain, v.checkNumericDomain},
		{RuleNotNull, v.checkNotNull},
	}
	for _, br := range BusinessRulesFor(entity) {
		br := br
		rules = append(rules, rule{br.Name, func(ctx context.Context, vf *verification) error {
			return v.collect(ctx, vf, br.Name, businessQuery(vf.name, vf.table.PrimaryKey, br))
		}})
	}
	return append(rules, rule{RuleReference, v.checkReferences})
}

// Verify runs every rule for one extent. A rule that cannot be evaluated is logged and
// recorded in Report.Errors, and the remaining rules still run. The error return is
// reserved for an unknown layer or entity.
func (v *Verifier) Verify(ctx context.Context, layer model.Layer, entity model.Entity) (*Report, error) {
	table, ok := model.TableFor(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownEntity, entity)
	}
	conn, schema, err := v.extent(layer)
	if err != nil {
		return nil, err
	}

	if v.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.opts.Timeout)
		defer cancel()
	}

	name := conn.QualifiedName(schema, string(entity))
	vf := &verification{
		db:     conn.DB(),
		conn:   conn,
		schema: schema,
		table:  table,
		name:   name,
		report: newReport(layer, entity, name),
	}
	logger := v.logger.With(zap.String("layer", string(layer)), zap.String("entity", string(entity)))
	logger.Info("Verifying extent", zap.String("table", name))

	for _, r := range v.rulesFor(entity) {
		if err := r.check(ctx, vf); err != nil {
			logger.Warn("Rule evaluation failed",
				zap.String("rule", r.name),
				zap.Error(err))
			vf.report.Errors = append(vf.report.Errors, RuleError{Rule: r.name, Message: err.Error()})
		}
	}

	report := vf.report
	report.Duration = time.Since(report.StartTime)

	if logger.Core().Enabled(zap.DebugLevel) {
		for _, violation := range report.Violations {
			logger.Debug("Quality violation",
				zap.Stringer("violation", violation),
				zap.Stringer("category", violation.Category()))
		}
	}

	fields := []zap.Field{
		zap.Int64("rows", report.RowCount),
		zap.Int("violations", len(report.Violations)),
		zap.Int("ruleErrors", len(report.Errors)),
		zap.Duration("duration", report.Duration),
	}
	if report.Passed() {
		logger.Info("Extent verified", fields...)
	} else {
		logger.Warn("Extent has quality issues", append(fields, zap.Any("byRule", report.CountByRule()))...)
	}
	return report, nil
}

// VerifyAll verifies the given entities of a layer concurrently, all entities when none
// are given. Reports are returned in load order.
func (v *Verifier) VerifyAll(ctx context.Context, layer model.Layer, entities ...model.Entity) ([]*Report, error) {
	if _, _, err := v.extent(layer); err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		entities = model.LoadOrder
	}

	reports := make([]*Report, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.opts.Concurrency)

	for i, entity := range entities {
		i, entity := i, entity
		g.Go(func() error {
			report, err := v.Verify(gctx, layer, entity)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(reports, func(a, b int) bool {
		return loadIndex(reports[a].Entity) < loadIndex(reports[b].Entity)
	})
	return reports, nil
}

func loadIndex(e model.Entity) int {
	for i, candidate := range model.LoadOrder {
		if candidate == e {
			return i
		}
	}
	return len(model.LoadOrder)
}

func (v *Verifier) checkRowCount(ctx context.Context, vf *verification) error {
	if err := vf.db.QueryRowxContext(ctx, rowCountQuery(vf.name)).Scan(&vf.report.RowCount); err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}
	return nil
}

func (v *Verifier) checkPrimaryKey(ctx context.Context, vf *verification) error {
	return v.collect(ctx, vf, RulePrimaryKey, primaryKeyQuery(vf.name, vf.table.PrimaryKey))
}

func (v *Verifier) checkWhitespace(ctx context.Context, vf *verification) error {
	columns := vf.table.TrimmedColumns()
	if len(columns) == 0 {
		return nil
	}
	return v.collect(ctx, vf, RuleWhitespace, whitespaceQuery(vf.name, vf.table.PrimaryKey, columns))
}

func (v *Verifier) checkNumericDomain(ctx context.Context, vf *verification) error {
	columns := vf.table.NonNegativeColumns()
	if len(columns) == 0 {
		return nil
	}
	return v.collect(ctx, vf, RuleNumericDomain, numericDomainQuery(vf.name, vf.table.PrimaryKey, columns))
}

// checkNotNull only applies to the cleansed layer, where every raw field is nullable
func (v *Verifier) checkNotNull(ctx context.Context, vf *verification) error {
	columns := vf.table.RequiredColumns()
	if vf.report.Layer != model.LayerCleansed || len(columns) == 0 {
		return nil
	}
	return v.collect(ctx, vf, RuleNotNull, notNullQuery(vf.name, vf.table.PrimaryKey, columns))
}

// checkDomain records the observed values of each categorical column. In the cleansed
// layer a value outside the column's closed set is also a violation.
func (v *Verifier) checkDomain(ctx context.Context, vf *verification) error {
	columns := vf.table.CategoricalColumns()
	if len(columns) == 0 {
		return nil
	}

	observed, err := v.query(ctx, vf, domainQuery(vf.name, columns), 0)
	if err != nil {
		return err
	}
	for _, o := range observed {
		vf.report.Domains[o.Column] = append(vf.report.Domains[o.Column], o.Value)
	}
	for col := range vf.report.Domains {
		sort.Strings(vf.report.Domains[col])
	}

	if vf.report.Layer != model.LayerCleansed {
		return nil
	}
	for _, m := range cleaner.MappingsFor(vf.table.Entity) {
		for _, value := range vf.report.Domains[m.Column] {
			if !m.Contains(value) {
				vf.report.Violations = append(vf.report.Violations, Violation{
					Rule:   RuleDomain,
					Column: m.Column,
					Value:  value,
				})
			}
		}
	}
	return nil
}

func (v *Verifier) checkReferences(ctx context.Context, vf *verification) error {
	for _, ref := range vf.table.References {
		parent, ok := model.TableFor(ref.Parent)
		if !ok {
			return fmt.Errorf("%w: %q", model.ErrUnknownEntity, ref.Parent)
		}
		query := referenceQuery(
			vf.name, vf.table.PrimaryKey,
			vf.conn.QualifiedName(vf.schema, string(ref.Parent)), parent.PrimaryKey,
			ref.Column)
		if err := v.collect(ctx, vf, RuleReference, query); err != nil {
			return fmt.Errorf("failed to check %s -> %s: %w", ref.Column, ref.Parent, err)
		}
	}
	return nil
}

// collect runs a violation query and appends its rows to the report
func (v *Verifier) collect(ctx context.Context, vf *verification, ruleName, query string) error {
	violations, err := v.query(ctx, vf, query, v.opts.MaxViolations)
	if err != nil {
		return err
	}
	for i := range violations {
		violations[i].Rule = ruleName
	}
	vf.report.Violations = append(vf.report.Violations, violations...)
	return nil
}

// query scans (column, key, value) rows
func (v *Verifier) query(ctx context.Context, vf *verification, query string, limit int) ([]Violation, error) {
	rows, err := vf.db.QueryxContext(ctx, withLimit(query, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var column, key, value sql.NullString
		if err := rows.Scan(&column, &key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, Violation{Column: column.String, Key: textOf(key), Value: textOf(value)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

func textOf(s sql.NullString) string {
	if !s.Valid {
		return nullText
	}
	return s.String
}
