package query

import (
	"fmt"
	"strings"

	"github.com/howjmay/publicator/internal/db/interfaces"
)

// Dialect covers the SQL differences the builder needs to know about.
type Dialect interface {
	// Placeholder returns the bind marker for the n-th argument (1-based)
	Placeholder(n int) string

	// EncodeValue converts a Go value to what the driver stores for field
	EncodeValue(field interfaces.FieldSchema, v interface{}) (interface{}, error)
}

// SQLBuilder renders filters and ordering into SQL fragments, collecting
// bind arguments as it goes. A builder is used for a single statement.
type SQLBuilder struct {
	schema  *interfaces.Schema
	dialect Dialect
	args    []interface{}
}

// NewSQLBuilder creates a builder for statements against schema
func NewSQLBuilder(schema *interfaces.Schema, dialect Dialect) *SQLBuilder {
	return &SQLBuilder{schema: schema, dialect: dialect}
}

// QuoteIdent quotes a table or column name
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Args returns the bind arguments collected so far
func (b *SQLBuilder) Args() []interface{} {
	return b.args
}

// Bind encodes v for the named field and returns its placeholder
func (b *SQLBuilder) Bind(field string, v interface{}) (string, error) {
	fs, ok := b.schema.Fields[field]
	if !ok {
		return "", fmt.Errorf("%w: unknown field '%s' for table '%s'", interfaces.ErrInvalidQuery, field, b.schema.TableName)
	}

	encoded := v
	if v != nil {
		var err error
		encoded, err = b.dialect.EncodeValue(fs, v)
		if err != nil {
			return "", fmt.Errorf("%w: field '%s': %v", interfaces.ErrInvalidQuery, field, err)
		}
	}

	b.args = append(b.args, encoded)
	return b.dialect.Placeholder(len(b.args)), nil
}

// Where renders filters as a WHERE clause. It returns an empty string when
// there is nothing to filter on.
func (b *SQLBuilder) Where(filters *interfaces.Filters) (string, error) {
	expr, err := b.filters(filters)
	if err != nil || expr == "" {
		return "", err
	}
	return "WHERE " + expr, nil
}

func (b *SQLBuilder) filters(filters *interfaces.Filters) (string, error) {
	if filters == nil {
		return "", nil
	}

	var parts []string

	for _, condition := range filters.Conditions {
		expr, err := b.condition(condition)
		if err != nil {
			return "", err
		}
		parts = append(parts, expr)
	}

	for _, sub := range filters.AND {
		expr, err := b.filters(sub)
		if err != nil {
			return "", err
		}
		if expr != "" {
			parts = append(parts, "("+expr+")")
		}
	}

	if len(filters.OR) > 0 {
		var alternatives []string
		for _, sub := range filters.OR {
			expr, err := b.filters(sub)
			if err != nil {
				return "", err
			}
			if expr == "" {
				expr = "1=1"
			}
			alternatives = append(alternatives, "("+expr+")")
		}
		parts = append(parts, "("+strings.Join(alternatives, " OR ")+")")
	}

	return strings.Join(parts, " AND "), nil
}

func (b *SQLBuilder) condition(c interfaces.Filter) (string, error) {
	if !b.schema.HasField(c.Field) {
		return "", fmt.Errorf("%w: unknown filter field '%s'", interfaces.ErrInvalidQuery, c.Field)
	}
	col := QuoteIdent(c.Field)

	if c.Operator == nil {
		if c.Value == nil {
			return col + " IS NULL", nil
		}
		ph, err := b.Bind(c.Field, c.Value)
		if err != nil {
			return "", err
		}
		return col + " = " + ph, nil
	}

	op := c.Operator
	if op.IsNull {
		return col + " IS NULL", nil
	}

	var parts []string
	if op.IsNotNull {
		parts = append(parts, col+" IS NOT NULL")
	}

	comparisons := []struct {
		sign  string
		value interface{}
	}{
		{"=", op.Eq},
		{"<>", op.Ne},
		{">", op.Gt},
		{">=", op.Gte},
		{"<", op.Lt},
		{"<=", op.Lte},
	}
	for _, cmp := range comparisons {
		if cmp.value == nil {
			continue
		}
		ph, err := b.Bind(c.Field, cmp.value)
		if err != nil {
			return "", err
		}
		parts = append(parts, col+" "+cmp.sign+" "+ph)
	}

	if len(op.In) > 0 {
		phs := make([]string, 0, len(op.In))
		for _, v := range op.In {
			ph, err := b.Bind(c.Field, v)
			if err != nil {
				return "", err
			}
			phs = append(phs, ph)
		}
		parts = append(parts, col+" IN ("+strings.Join(phs, ", ")+")")
	}

	if len(parts) == 0 {
		return col + " IS NOT NULL", nil
	}
	return strings.Join(parts, " AND "), nil
}

// OrderBy renders an ORDER BY clause, defaulting to ascending id
func (b *SQLBuilder) OrderBy(orderBy []interfaces.OrderBy) (string, error) {
	if len(orderBy) == 0 {
		return "ORDER BY " + QuoteIdent(interfaces.FieldID) + " ASC", nil
	}

	parts := make([]string, 0, len(orderBy))
	for _, order := range orderBy {
		if !b.schema.HasField(order.Field) {
			return "", fmt.Errorf("%w: unknown order field '%s'", interfaces.ErrInvalidQuery, order.Field)
		}
		dir := "ASC"
		if strings.EqualFold(order.Direction, "desc") {
			dir = "DESC"
		}
		parts = append(parts, QuoteIdent(order.Field)+" "+dir)
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}
