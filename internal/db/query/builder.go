package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/howjmay/publicator/internal/db/interfaces"
)

// Builder evaluates queries against records held in memory and validates
// record data against a schema.
type Builder struct {
	schema *interfaces.Schema
}

// NewBuilder creates a new query builder for a schema
func NewBuilder(schema *interfaces.Schema) *Builder {
	return &Builder{schema: schema}
}

// MatchesFilters checks if a record matches the given filters
func (b *Builder) MatchesFilters(record map[string]interface{}, filters *interfaces.Filters) bool {
	if filters == nil {
		return true
	}

	for _, andFilter := range filters.AND {
		if !b.MatchesFilters(record, andFilter) {
			return false
		}
	}

	if len(filters.OR) > 0 {
		hasMatch := false
		for _, orFilter := range filters.OR {
			if b.MatchesFilters(record, orFilter) {
				hasMatch = true
				break
			}
		}
		if !hasMatch {
			return false
		}
	}

	for _, condition := range filters.Conditions {
		if !b.matchesCondition(record, condition) {
			return false
		}
	}

	return true
}

func (b *Builder) matchesCondition(record map[string]interface{}, condition interfaces.Filter) bool {
	fieldValue, exists := record[condition.Field]

	if condition.Operator == nil {
		if condition.Value == nil {
			return !exists || fieldValue == nil
		}
		return exists && Compare(fieldValue, condition.Value) == 0 && comparable(fieldValue, condition.Value)
	}

	op := condition.Operator

	if op.IsNull {
		return !exists || fieldValue == nil
	}
	if op.IsNotNull && (!exists || fieldValue == nil) {
		return false
	}
	if !exists || fieldValue == nil {
		return op.IsNotNull && op.Eq == nil && op.Ne == nil && op.Gt == nil &&
			op.Gte == nil && op.Lt == nil && op.Lte == nil && len(op.In) == 0
	}

	if op.Eq != nil && !(comparable(fieldValue, op.Eq) && Compare(fieldValue, op.Eq) == 0) {
		return false
	}
	if op.Ne != nil && comparable(fieldValue, op.Ne) && Compare(fieldValue, op.Ne) == 0 {
		return false
	}
	if op.Gt != nil && !(comparable(fieldValue, op.Gt) && Compare(fieldValue, op.Gt) > 0) {
		return false
	}
	if op.Gte != nil && !(comparable(fieldValue, op.Gte) && Compare(fieldValue, op.Gte) >= 0) {
		return false
	}
	if op.Lt != nil && !(comparable(fieldValue, op.Lt) && Compare(fieldValue, op.Lt) < 0) {
		return false
	}
	if op.Lte != nil && !(comparable(fieldValue, op.Lte) && Compare(fieldValue, op.Lte) <= 0) {
		return false
	}
	if len(op.In) > 0 {
		found := false
		for _, val := range op.In {
			if comparable(fieldValue, val) && Compare(fieldValue, val) == 0 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// Equal reports whether a and b hold the same value. Two nils are equal.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return comparable(a, b) && Compare(a, b) == 0
}

// comparable reports whether Compare gives a meaningful answer for a and b.
func comparable(a, b interface{}) bool {
	switch a.(type) {
	case int, int64:
		switch b.(type) {
		case int, int64:
			return true
		}
	case float64:
		_, ok := b.(float64)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	case time.Time:
		_, ok := b.(time.Time)
		return ok
	}
	return false
}

// Compare orders two values of the same kind. Values of different kinds
// compare equal; callers check comparable first.
func Compare(a, other interface{}) int {
	switch av := a.(type) {
	case int:
		return compareInt(int64(av), other)
	case int64:
		return compareInt(av, other)
	case float64:
		if bv, ok := other.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	case string:
		if bv, ok := other.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := other.(bool); ok && av != bv {
			if !av {
				return -1
			}
			return 1
		}
	case time.Time:
		if bv, ok := other.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	return 0
}

func compareInt(av int64, other interface{}) int {
	var bv int64
	switch v := other.(type) {
	case int:
		bv = int64(v)
	case int64:
		bv = v
	default:
		return 0
	}
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}

// ApplySort sorts records by each OrderBy in turn
func (b *Builder) ApplySort(records []map[string]interface{}, orderBy []interfaces.OrderBy) []map[string]interface{} {
	if len(orderBy) == 0 {
		return records
	}

	sorted := make([]map[string]interface{}, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		for _, order := range orderBy {
			cmp := Compare(sorted[i][order.Field], sorted[j][order.Field])
			if cmp == 0 {
				continue
			}
			if strings.EqualFold(order.Direction, "desc") {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	return sorted
}

// ApplyPagination applies limit and offset to the records
func (b *Builder) ApplyPagination(records []map[string]interface{}, limit, offset *int) []map[string]interface{} {
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}

	if start >= len(records) {
		return []map[string]interface{}{}
	}

	end := len(records)
	if limit != nil {
		end = start + *limit
		if end > len(records) {
			end = len(records)
		}
	}

	return records[start:end]
}

// ValidateData validates data against the schema. With partial set, missing
// fields are allowed (used for updates).
func (b *Builder) ValidateData(data map[string]interface{}, partial bool) error {
	for fieldName := range data {
		if !b.schema.HasField(fieldName) {
			return fmt.Errorf("%w: unknown field '%s' for table '%s'", interfaces.ErrInvalidQuery, fieldName, b.schema.TableName)
		}
	}

	for fieldName, fieldSchema := range b.schema.Fields {
		// System fields are maintained by the backends
		if fieldName == interfaces.FieldID || fieldName == interfaces.FieldCreatedAt || fieldName == interfaces.FieldUpdatedAt {
			continue
		}

		value, exists := data[fieldName]
		if !exists {
			if !partial && !fieldSchema.Nullable {
				return fmt.Errorf("field '%s' is required", fieldName)
			}
			continue
		}

		if value == nil {
			if !fieldSchema.Nullable {
				return fmt.Errorf("field '%s' cannot be null", fieldName)
			}
			continue
		}

		if err := b.validateFieldType(fieldName, value, fieldSchema.Type); err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) validateFieldType(fieldName string, value interface{}, expectedType string) error {
	switch expectedType {
	case interfaces.TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' must be a string", fieldName)
		}
	case interfaces.TypeInt64:
		if _, ok := value.(int64); !ok {
			return fmt.Errorf("field '%s' must be an int64", fieldName)
		}
	case interfaces.TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' must be a boolean", fieldName)
		}
	case interfaces.TypeTime:
		if _, ok := value.(time.Time); !ok {
			return fmt.Errorf("field '%s' must be a time value", fieldName)
		}
	}

	return nil
}
