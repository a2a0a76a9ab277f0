package publications

import (
	"time"

	"github.com/howjmay/publicator/internal/apperr"
	"github.com/howjmay/publicator/internal/db/interfaces"
	"github.com/howjmay/publicator/internal/validation"
)

// Filter narrows a publication listing. Nil fields do not filter.
type Filter struct {
	Published *bool
	After     *time.Time
}

// ParseFilter reads the raw published and after query values. A nil
// argument means the parameter was absent.
func ParseFilter(published, after *string) (Filter, error) {
	var f Filter

	if published != nil {
		var b bool
		switch *published {
		case "true":
			b = true
		case "false":
			b = false
		default:
			return Filter{}, filterError("published", "must be true or false")
		}
		f.Published = &b
	}

	if after != nil {
		t, err := validation.ParseDate(*after)
		if err != nil {
			return Filter{}, filterError("after", "must be a valid date")
		}
		f.After = &t
	}

	return f, nil
}

func filterError(field, message string) error {
	return apperr.Validation("invalid publication filter", apperr.Violation{Field: field, Message: message})
}

// where translates the filter into gateway conditions. A publication dated
// exactly now counts as published.
func (f Filter) where(now time.Time) *interfaces.Filters {
	var conditions []interfaces.Filter

	if f.Published != nil {
		op := &interfaces.FilterOperator{Gt: now}
		if *f.Published {
			op = &interfaces.FilterOperator{Lte: now}
		}
		conditions = append(conditions, interfaces.Filter{Field: "date", Operator: op})
	}

	if f.After != nil {
		conditions = append(conditions, interfaces.Filter{
			Field:    "date",
			Operator: &interfaces.FilterOperator{Gt: *f.After},
		})
	}

	if len(conditions) == 0 {
		return nil
	}
	return interfaces.Where(conditions...)
}
