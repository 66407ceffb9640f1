package reconcile

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"inventory/pkg/policy"
)

// ErrUnauthorized is returned when the actor may not perform the requested
// top-level operation at all. Sub-operations the actor lacks a capability
// for are skipped without an error.
var ErrUnauthorized = errors.Wrap(policy.ErrUnauthorized, "reconcile")

// ValidationError aggregates every shape error of one request. Parent fields
// are keyed by JSON name; each invalid collection holds one map per entry,
// empty for entries that passed.
type ValidationError struct {
	Fields      map[string][]string
	Collections map[string][]map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields)+len(e.Collections))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	for k := range e.Collections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid data: " + strings.Join(keys, ", ")
}

// Errors returns the body of the "errors" member of a 422 response.
func (e *ValidationError) Errors() map[string]any {
	out := make(map[string]any, len(e.Fields)+len(e.Collections))
	for k, v := range e.Fields {
		out[k] = v
	}
	for k, v := range e.Collections {
		out[k] = v
	}
	return out
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0 && len(e.Collections) == 0
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors validates one struct and returns its messages by JSON name.
func fieldErrors(s any) map[string][]string {
	out := map[string][]string{}
	err := validate.Struct(s)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["non_field_errors"] = []string{err.Error()}
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "datetime":
		return "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	}
	return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
}

// collectionErrors validates every entry and returns nil when all pass.
func collectionErrors[T any](data []T) []map[string][]string {
	out := make([]map[string][]string, len(data))
	bad := false
	for i := range data {
		out[i] = fieldErrors(data[i])
		if len(out[i]) > 0 {
			bad = true
		}
	}
	if !bad {
		return nil
	}
	return out
}

func (in HardwareInput) check() error {
	verr := &ValidationError{Fields: fieldErrors(in), Collections: map[string][]map[string][]string{}}
	if errs := collectionErrors(in.One2m.Instances.Data); errs != nil {
		verr.Collections["instances"] = errs
	}
	verr.merge(in.decoded)
	if verr.empty() {
		return nil
	}
	return verr
}

func (in SoftwareInput) check() error {
	verr := &ValidationError{Fields: fieldErrors(in), Collections: map[string][]map[string][]string{}}
	if errs := collectionErrors(in.One2m.Instances.Data); errs != nil {
		verr.Collections["instances"] = errs
	}
	if errs := collectionErrors(in.One2m.Subscriptions.Data); errs != nil {
		verr.Collections["subscriptions"] = errs
	}
	verr.merge(in.decoded)
	if verr.empty() {
		return nil
	}
	return verr
}
