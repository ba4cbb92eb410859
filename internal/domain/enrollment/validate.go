package enrollment

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failing field. Guardian fields are keyed
// "guardians[<index>].<field>".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of a validation pass. The zero value passes.
type Result struct {
	Errors []FieldError `json:"errors,omitempty"`
}

// OK reports whether validation passed.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// HasErrors reports whether validation failed.
func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first error message, or "".
func (r Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// ByField returns the first message for each failing field.
func (r Result) ByField() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

func (r *Result) add(field, msg string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: msg})
}

// ValidateStep checks only the fields the given step declares. It has no side
// effects and may be called any number of times.
func ValidateStep(step Step, f *Form) Result {
	var res Result
	if step < 0 || int(step) >= len(Steps) {
		res.add("step", ErrInvalidStep.Error())
		return res
	}
	for _, field := range Steps[step].Fields {
		validateField(field, f, &res)
	}
	return res
}

// ValidateAll checks every field of the form regardless of the step.
// Submission runs this before anything else.
func ValidateAll(f *Form) Result {
	var res Result
	for _, field := range []string{FieldFullName, FieldClassName, FieldStudentID, FieldDateOfBirth, FieldGuardians} {
		validateField(field, f, &res)
	}
	return res
}

func validateField(field string, f *Form, res *Result) {
	if field == FieldGuardians {
		for _, r := range GuardianListRules {
			check(r, f, field, res)
		}
		for i, g := range f.Guardians {
			prefix := FieldGuardians + "[" + strconv.Itoa(i) + "]."
			for _, r := range GuardianRules {
				check(r, g, prefix+r.Field, res)
			}
		}
		return
	}
	for _, r := range StudentRules {
		if r.Field == field {
			check(r, f, field, res)
		}
	}
}

func check[T any](r Rule[T], v T, key string, res *Result) {
	err := validate.Var(r.Value(v), r.Tag)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		res.add(key, r.message(verrs[0].Tag()))
		return
	}
	res.add(key, r.message(""))
}
