package interfaces

import (
	"errors"
	"sort"
	"strconv"
)

// ID is the auto-increment primary key assigned by the backend.
type ID int64

func (i ID) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// Field types understood by the backends.
const (
	TypeString = "string"
	TypeInt64  = "int64"
	TypeBool   = "bool"
	TypeTime   = "time"
)

// System columns maintained by the backends.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// FilterOperator represents different filter operations. Every operator that
// is set must hold for the condition to match.
type FilterOperator struct {
	Eq        interface{}   `json:"eq,omitempty"`
	Ne        interface{}   `json:"ne,omitempty"`
	Gt        interface{}   `json:"gt,omitempty"`
	Gte       interface{}   `json:"gte,omitempty"`
	Lt        interface{}   `json:"lt,omitempty"`
	Lte       interface{}   `json:"lte,omitempty"`
	In        []interface{} `json:"in,omitempty"`
	IsNull    bool          `json:"is_null,omitempty"`
	IsNotNull bool          `json:"is_not_null,omitempty"`
}

// Filter represents a field filter
type Filter struct {
	Field    string          `json:"field"`
	Value    interface{}     `json:"value,omitempty"`
	Operator *FilterOperator `json:"operator,omitempty"`
}

// Filters represents complex filtering with AND/OR logic
type Filters struct {
	Conditions []Filter   `json:"conditions,omitempty"`
	AND        []*Filters `json:"and,omitempty"`
	OR         []*Filters `json:"or,omitempty"`
}

// Where is shorthand for a filter set made only of conditions.
func Where(conditions ...Filter) *Filters {
	return &Filters{Conditions: conditions}
}

// Eq matches records whose field equals value.
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Value: value}
}

// OrderBy represents sorting configuration
type OrderBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// Query represents a database query with filtering, sorting, and pagination
type Query struct {
	Where   *Filters  `json:"where,omitempty"`
	OrderBy []OrderBy `json:"order_by,omitempty"`
	Limit   *int      `json:"limit,omitempty"`
	Offset  *int      `json:"offset,omitempty"`
}

// ResultPage represents paginated query results
type ResultPage struct {
	Data     []map[string]interface{} `json:"data"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"page_size"`
}

// Schema represents entity schema definition
type Schema struct {
	TableName string                 `json:"table_name"`
	Fields    map[string]FieldSchema `json:"fields"`
	Indexes   []Index                `json:"indexes,omitempty"`
}

// Columns returns the schema's field names with the primary key first and the
// rest in lexical order, so generated SQL and scans are stable.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		if name != FieldID {
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)
	if _, ok := s.Fields[FieldID]; ok {
		cols = append([]string{FieldID}, cols...)
	}
	return cols
}

// HasField reports whether the schema declares the named field.
func (s *Schema) HasField(name string) bool {
	_, ok := s.Fields[name]
	return ok
}

// FieldSchema represents a field definition
type FieldSchema struct {
	Type       string      `json:"type"` // one of the Type* constants
	Nullable   bool        `json:"nullable"`
	PrimaryKey bool        `json:"primary_key"`
	ForeignKey *ForeignKey `json:"foreign_key,omitempty"`
}

// ForeignKey represents a foreign key constraint
type ForeignKey struct {
	Table    string `json:"table"`
	Column   string `json:"column"`
	OnDelete string `json:"on_delete,omitempty"` // CASCADE, RESTRICT (default)
}

// Index represents a database index
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// Common database errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrUniqueConstraint     = errors.New("unique constraint violation")
	ErrForeignKeyConstraint = errors.New("foreign key constraint violation")
	ErrInvalidQuery         = errors.New("invalid query")
	ErrTransactionCompleted = errors.New("transaction already completed")
	ErrDatabaseNotConnected = errors.New("database not connected")
)

// DatabaseError wraps database-specific errors
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
