package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/howjmay/publicator/internal/db/interfaces"
	"github.com/howjmay/publicator/internal/db/query"
)

// maxLimit stands in for "no limit" when only an offset is given; sqlite
// does not accept OFFSET on its own.
const maxLimit = 1<<63 - 1

type repository struct {
	db        *Database
	schema    *interfaces.Schema
	validator *query.Builder
	columns   string
}

func newRepository(db *Database, schema *interfaces.Schema) *repository {
	return &repository{
		db:        db,
		schema:    schema,
		validator: query.NewBuilder(schema),
		columns:   quoteColumns(schema.Columns()),
	}
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = query.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func (r *repository) table() string {
	return query.QuoteIdent(r.schema.TableName)
}

func (r *repository) builder() *query.SQLBuilder {
	return query.NewSQLBuilder(r.schema, r.db.dialect)
}

func (r *repository) exec(ctx context.Context) (executor, error) {
	db, err := r.db.conn()
	if err != nil {
		return nil, err
	}
	return getExecutor(ctx, db), nil
}

// GetByID retrieves a single record by its ID
func (r *repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	ex, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}

	b := r.builder()
	ph, err := b.Bind(interfaces.FieldID, int64(id))
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", r.columns, r.table(), query.QuoteIdent(interfaces.FieldID), ph)
	return r.scanOne(ex.QueryRowContext(ctx, stmt, b.Args()...), "get")
}

// FindOne retrieves the first record matching the query
func (r *repository) FindOne(ctx context.Context, q *interfaces.Query) (map[string]interface{}, error) {
	one := interfaces.Query{}
	if q != nil {
		one = *q
	}
	limit := 1
	one.Limit = &limit

	page, err := r.FindMany(ctx, &one)
	if err != nil {
		return nil, err
	}
	if len(page.Data) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return page.Data[0], nil
}

// FindMany retrieves multiple records matching the query with pagination
func (r *repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	if q == nil {
		q = &interfaces.Query{}
	}

	total, err := r.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	ex, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}

	b := r.builder()
	where, err := b.Where(q.Where)
	if err != nil {
		return nil, err
	}
	orderBy, err := b.OrderBy(q.OrderBy)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s %s %s", r.columns, r.table(), where, orderBy)

	offset := 0
	if q.Offset != nil && *q.Offset > 0 {
		offset = *q.Offset
	}
	switch {
	case q.Limit != nil:
		stmt += fmt.Sprintf(" LIMIT %d OFFSET %d", *q.Limit, offset)
	case offset > 0:
		stmt += fmt.Sprintf(" LIMIT %d OFFSET %d", int64(maxLimit), offset)
	}

	rows, err := ex.QueryContext(ctx, stmt, b.Args()...)
	if err != nil {
		return nil, r.wrap("find", err)
	}
	defer rows.Close()

	data := []map[string]interface{}{}
	for rows.Next() {
		record, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		data = append(data, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrap("find", err)
	}

	pageSize := len(data)
	if q.Limit != nil {
		pageSize = *q.Limit
	}
	page := 1
	if pageSize > 0 {
		page = offset/pageSize + 1
	}

	return &interfaces.ResultPage{
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Create inserts a new record and returns it with its assigned id
func (r *repository) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	if _, exists := data[interfaces.FieldID]; exists {
		return nil, fmt.Errorf("%w: id is assigned by the database", interfaces.ErrInvalidQuery)
	}
	if err := r.validator.ValidateData(data, false); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidQuery, err)
	}

	ex, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	values := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		values[k] = v
	}
	values[interfaces.FieldCreatedAt] = now
	values[interfaces.FieldUpdatedAt] = now

	b := r.builder()
	cols := sortedKeys(values)
	quoted := make([]string, len(cols))
	phs := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = query.QuoteIdent(col)
		if phs[i], err = b.Bind(col, values[col]); err != nil {
			return nil, err
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		r.table(), strings.Join(quoted, ", "), strings.Join(phs, ", "), r.columns)
	return r.scanOne(ex.QueryRowContext(ctx, stmt, b.Args()...), "insert")
}

// Update modifies an existing record by ID
func (r *repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	if _, exists := data[interfaces.FieldID]; exists {
		return nil, fmt.Errorf("%w: id cannot be changed", interfaces.ErrInvalidQuery)
	}
	if err := r.validator.ValidateData(data, true); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidQuery, err)
	}

	ex, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		values[k] = v
	}
	values[interfaces.FieldUpdatedAt] = time.Now().UTC()

	b := r.builder()
	cols := sortedKeys(values)
	sets := make([]string, len(cols))
	for i, col := range cols {
		ph, err := b.Bind(col, values[col])
		if err != nil {
			return nil, err
		}
		sets[i] = query.QuoteIdent(col) + " = " + ph
	}
	idPh, err := b.Bind(interfaces.FieldID, int64(id))
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING %s",
		r.table(), strings.Join(sets, ", "), query.QuoteIdent(interfaces.FieldID), idPh, r.columns)
	return r.scanOne(ex.QueryRowContext(ctx, stmt, b.Args()...), "update")
}

// Delete removes a record by ID
func (r *repository) Delete(ctx context.Context, id interfaces.ID) error {
	ex, err := r.exec(ctx)
	if err != nil {
		return err
	}

	b := r.builder()
	ph, err := b.Bind(interfaces.FieldID, int64(id))
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", r.table(), query.QuoteIdent(interfaces.FieldID), ph)
	res, err := ex.ExecContext(ctx, stmt, b.Args()...)
	if err != nil {
		return r.wrap("delete", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return r.wrap("delete", err)
	}
	if n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// Count returns the number of records matching the query
func (r *repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	ex, err := r.exec(ctx)
	if err != nil {
		return 0, err
	}

	b := r.builder()
	where := ""
	if q != nil {
		if where, err = b.Where(q.Where); err != nil {
			return 0, err
		}
	}

	var count int64
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", r.table(), where)
	if err := ex.QueryRowContext(ctx, stmt, b.Args()...).Scan(&count); err != nil {
		return 0, r.wrap("count", err)
	}
	return count, nil
}

// GetSchema returns the schema for this repository
func (r *repository) GetSchema() *interfaces.Schema {
	return r.schema
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *repository) scanOne(row *sql.Row, op string) (map[string]interface{}, error) {
	record, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, r.wrap(op, err)
	}
	return record, nil
}

func (r *repository) scan(s scanner) (map[string]interface{}, error) {
	cols := r.schema.Columns()
	raw := make([]interface{}, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}

	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	record := make(map[string]interface{}, len(cols))
	for i, col := range cols {
		if raw[i] == nil {
			record[col] = nil
			continue
		}
		v, err := r.db.dialect.DecodeValue(r.schema.Fields[col], raw[i])
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", r.schema.TableName, col, err)
		}
		record[col] = v
	}
	return record, nil
}

// wrap maps constraint violations to the interfaces sentinels and wraps any
// other driver error with the operation name.
func (r *repository) wrap(op string, err error) error {
	translated := r.db.dialect.TranslateError(err)
	if errors.Is(translated, interfaces.ErrUniqueConstraint) || errors.Is(translated, interfaces.ErrForeignKeyConstraint) {
		return translated
	}
	return &interfaces.DatabaseError{Op: op, Err: err}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
