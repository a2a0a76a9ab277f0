package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/howjmay/publicator/internal/db/interfaces"
	"github.com/howjmay/publicator/internal/db/query"
)

// Repository implements the Repository interface for in-memory storage
type Repository struct {
	db        *Database
	schema    *interfaces.Schema
	builder   *query.Builder
	tableName string
}

// NewRepository creates a new in-memory repository
func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:        db,
		schema:    schema,
		builder:   query.NewBuilder(schema),
		tableName: schema.TableName,
	}
}

// GetByID retrieves a single record by its ID
func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if !r.db.connected {
		return nil, interfaces.ErrDatabaseNotConnected
	}

	t, exists := r.db.tables[r.tableName]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	record, exists := t.rows[int64(id)]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	return copyRecord(record), nil
}

// FindOne retrieves the first record matching the query
func (r *Repository) FindOne(ctx context.Context, q *interfaces.Query) (map[string]interface{}, error) {
	one := interfaces.Query{}
	if q != nil {
		one = *q
	}
	limit := 1
	one.Limit = &limit

	result, err := r.FindMany(ctx, &one)
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, interfaces.ErrNotFound
	}

	return result.Data[0], nil
}

// FindMany retrieves multiple records matching the query with pagination.
// Without an explicit order, records come back by ascending id.
func (r *Repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	if q == nil {
		q = &interfaces.Query{}
	}
	if err := r.checkQuery(q); err != nil {
		return nil, err
	}

	records, err := r.matching(q.Where)
	if err != nil {
		return nil, err
	}
	total := int64(len(records))

	orderBy := q.OrderBy
	if len(orderBy) == 0 {
		orderBy = []interfaces.OrderBy{{Field: interfaces.FieldID, Direction: "asc"}}
	}
	records = r.builder.ApplySort(records, orderBy)

	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	pageSize := len(records)
	if q.Limit != nil {
		pageSize = *q.Limit
	}

	records = r.builder.ApplyPagination(records, q.Limit, q.Offset)

	page := 1
	if pageSize > 0 {
		page = (offset / pageSize) + 1
	}

	return &interfaces.ResultPage{
		Data:     records,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Create inserts a new record and assigns it the next id of the table
func (r *Repository) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	if _, exists := data[interfaces.FieldID]; exists {
		return nil, fmt.Errorf("%w: id is assigned by the database", interfaces.ErrInvalidQuery)
	}
	if err := r.builder.ValidateData(data, false); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidQuery, err)
	}

	record := copyRecord(data)
	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := record[fieldName]; !exists && fieldSchema.Nullable {
			record[fieldName] = nil
		}
	}
	now := time.Now().UTC()
	record[interfaces.FieldCreatedAt] = now
	record[interfaces.FieldUpdatedAt] = now

	var result map[string]interface{}
	err := r.db.write(ctx, func() error {
		t := r.table()

		if err := r.checkUnique(t, record, 0); err != nil {
			return err
		}
		if err := r.checkForeignKeys(record); err != nil {
			return err
		}

		t.seq++
		record[interfaces.FieldID] = t.seq
		t.rows[t.seq] = record
		result = copyRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Update modifies an existing record by ID
func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	if _, exists := data[interfaces.FieldID]; exists {
		return nil, fmt.Errorf("%w: id cannot be changed", interfaces.ErrInvalidQuery)
	}
	if err := r.builder.ValidateData(data, true); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidQuery, err)
	}

	var result map[string]interface{}
	err := r.db.write(ctx, func() error {
		t := r.table()

		existing, exists := t.rows[int64(id)]
		if !exists {
			return interfaces.ErrNotFound
		}

		updated := copyRecord(existing)
		for k, v := range data {
			updated[k] = v
		}
		updated[interfaces.FieldUpdatedAt] = time.Now().UTC()

		if err := r.checkUnique(t, updated, int64(id)); err != nil {
			return err
		}
		if err := r.checkForeignKeys(updated); err != nil {
			return err
		}

		t.rows[int64(id)] = updated
		result = copyRecord(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Delete removes a record by ID. References from other tables either block
// the delete or are removed with it, following their OnDelete rule.
func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	return r.db.write(ctx, func() error {
		t := r.table()
		if _, exists := t.rows[int64(id)]; !exists {
			return interfaces.ErrNotFound
		}
		return r.db.deleteRow(r.tableName, int64(id))
	})
}

// Count returns the number of records matching the query
func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	var where *interfaces.Filters
	if q != nil {
		if err := r.checkQuery(q); err != nil {
			return 0, err
		}
		where = q.Where
	}

	records, err := r.matching(where)
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

// GetSchema returns the schema for this repository
func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

func (r *Repository) matching(where *interfaces.Filters) ([]map[string]interface{}, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if !r.db.connected {
		return nil, interfaces.ErrDatabaseNotConnected
	}

	records := []map[string]interface{}{}
	t, exists := r.db.tables[r.tableName]
	if !exists {
		return records, nil
	}

	for _, record := range t.rows {
		if r.builder.MatchesFilters(record, where) {
			records = append(records, copyRecord(record))
		}
	}
	return records, nil
}

// checkQuery rejects fields the schema does not declare, as the SQL
// backends do.
func (r *Repository) checkQuery(q *interfaces.Query) error {
	for _, order := range q.OrderBy {
		if !r.schema.HasField(order.Field) {
			return fmt.Errorf("%w: unknown order field '%s'", interfaces.ErrInvalidQuery, order.Field)
		}
	}
	return checkFilterFields(r.schema, q.Where)
}

func checkFilterFields(schema *interfaces.Schema, filters *interfaces.Filters) error {
	if filters == nil {
		return nil
	}
	for _, c := range filters.Conditions {
		if !schema.HasField(c.Field) {
			return fmt.Errorf("%w: unknown filter field '%s'", interfaces.ErrInvalidQuery, c.Field)
		}
	}
	for _, sub := range append(append([]*interfaces.Filters{}, filters.AND...), filters.OR...) {
		if err := checkFilterFields(schema, sub); err != nil {
			return err
		}
	}
	return nil
}

// table must be called with the write lock held.
func (r *Repository) table() *table {
	t, exists := r.db.tables[r.tableName]
	if !exists {
		t = newTable()
		r.db.tables[r.tableName] = t
	}
	return t
}

func (r *Repository) checkUnique(t *table, record map[string]interface{}, selfID int64) error {
	for _, index := range r.schema.Indexes {
		if !index.Unique {
			continue
		}

		key := make([]interface{}, len(index.Columns))
		hasNull := false
		for i, column := range index.Columns {
			key[i] = record[column]
			if key[i] == nil {
				hasNull = true
			}
		}
		// NULLs never collide, matching SQL unique indexes
		if hasNull {
			continue
		}

		for id, existing := range t.rows {
			if id == selfID {
				continue
			}
			match := true
			for i, column := range index.Columns {
				if !query.Equal(key[i], existing[column]) {
					match = false
					break
				}
			}
			if match {
				return fmt.Errorf("%w: unique index '%s'", interfaces.ErrUniqueConstraint, index.Name)
			}
		}
	}

	return nil
}

func (r *Repository) checkForeignKeys(record map[string]interface{}) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		fk := fieldSchema.ForeignKey
		if fk == nil {
			continue
		}

		value := record[fieldName]
		if value == nil {
			continue
		}

		refTable, exists := r.db.tables[fk.Table]
		if !exists {
			return fmt.Errorf("%w: referenced table '%s' does not exist", interfaces.ErrForeignKeyConstraint, fk.Table)
		}

		found := false
		for _, refRecord := range refTable.rows {
			if query.Equal(refRecord[fk.Column], value) {
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("%w: field '%s' references non-existent record '%v'", interfaces.ErrForeignKeyConstraint, fieldName, value)
		}
	}

	return nil
}

// deleteRow removes a row after applying the OnDelete rule of every foreign
// key pointing at it. Must be called with the write lock held.
func (db *Database) deleteRow(tableName string, id int64) error {
	t := db.tables[tableName]
	row := t.rows[id]

	type cascade struct {
		table string
		id    int64
	}
	var cascades []cascade

	for refName, schema := range db.schemas {
		refTable, exists := db.tables[refName]
		if !exists {
			continue
		}
		for fieldName, fieldSchema := range schema.Fields {
			fk := fieldSchema.ForeignKey
			if fk == nil || fk.Table != tableName {
				continue
			}
			for refID, refRow := range refTable.rows {
				if !query.Equal(refRow[fieldName], row[fk.Column]) {
					continue
				}
				if !strings.EqualFold(fk.OnDelete, "CASCADE") {
					return fmt.Errorf("%w: record is referenced by table '%s', field '%s'", interfaces.ErrForeignKeyConstraint, refName, fieldName)
				}
				cascades = append(cascades, cascade{table: refName, id: refID})
			}
		}
	}

	for _, c := range cascades {
		if _, exists := db.tables[c.table].rows[c.id]; !exists {
			continue
		}
		if err := db.deleteRow(c.table, c.id); err != nil {
			return err
		}
	}

	delete(t.rows, id)
	return nil
}
