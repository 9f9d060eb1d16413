// Package domain contains the validated entities of the platform.
// Entities are built exclusively through their constructors, which
// report every broken rule at once, and are changed only through
// copy-on-write mutators that preserve the constructor's invariants.
// No runtime, storage, or UI logic should be added here.
package domain

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// MaxClockSkew is the tolerance applied to every "not in the future"
// timestamp rule, so slightly drifted client clocks do not get rejected.
const MaxClockSkew = 5 * time.Minute

// Violations is the ordered list of human-readable rule violations found
// while constructing an entity. Constructors accumulate every broken
// rule in a single pass instead of stopping at the first, so a caller
// can present a complete correction list.
type Violations []string

func (v Violations) OK() bool { return len(v) == 0 }

func (v Violations) String() string { return strings.Join(v, "; ") }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report violations under the json field name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return v
}

// fieldViolations flattens a validator.Struct error into readable
// messages, one per broken field rule.
func fieldViolations(err error) Violations {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return Violations{err.Error()}
	}
	out := make(Violations, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, describeField(fe))
	}
	return out
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// inFuture reports whether t lies beyond the clock-skew tolerance.
func inFuture(t, now time.Time) bool {
	return t.After(now.Add(MaxClockSkew))
}

// normalizeSet trims every value, drops empties and de-duplicates while
// preserving first-seen order. Used for tags, rosters and participant lists.
func normalizeSet(values []string) []string {
	trimmed := lo.Map(values, func(s string, _ int) string { return strings.TrimSpace(s) })
	trimmed = lo.Filter(trimmed, func(s string, _ int) bool { return s != "" })
	return lo.Uniq(trimmed)
}

// appendUnique returns a fresh slice with x appended, or the original
// slice when x is already present. Never mutates its input.
func appendUnique(xs []string, x string) []string {
	if lo.Contains(xs, x) {
		return xs
	}
	out := make([]string, len(xs), len(xs)+1)
	copy(out, xs)
	return append(out, x)
}
