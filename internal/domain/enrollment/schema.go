package enrollment

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Field names used in step declarations and error keys.
const (
	FieldFullName     = "fullName"
	FieldClassName    = "className"
	FieldStudentID    = "studentId"
	FieldDateOfBirth  = "dateOfBirth"
	FieldGuardians    = "guardians"
	FieldPhoneNumber  = "phoneNumber"
	FieldEmail        = "email"
	FieldRelationship = "relationship"
)

// Rule is one schema entry: the validator tag a field's value must satisfy,
// and the message to show per failing tag.
type Rule[T any] struct {
	Field    string
	Tag      string
	Messages map[string]string
	Value    func(T) any
}

func (r Rule[T]) message(tag string) string {
	if m, ok := r.Messages[tag]; ok {
		return m
	}
	return r.Field + " is invalid"
}

// StudentRules are the rules for the student fields of a form.
var StudentRules = []Rule[*Form]{
	{
		Field:    FieldFullName,
		Tag:      "required",
		Messages: map[string]string{"required": "Full name is required"},
		Value:    func(f *Form) any { return strings.TrimSpace(f.Student.FullName) },
	},
	{
		Field:    FieldClassName,
		Tag:      "required",
		Messages: map[string]string{"required": "Class is required"},
		Value:    func(f *Form) any { return strings.TrimSpace(f.Student.ClassName) },
	},
	{
		Field: FieldStudentID,
		Tag:   "omitempty,max=64,studentid",
		Messages: map[string]string{
			"max":       "Student ID must be at most 64 characters",
			"studentid": "Student ID may only contain letters, digits, '-' and '_'",
		},
		Value: func(f *Form) any { return strings.TrimSpace(f.Student.StudentID) },
	},
	{
		Field: FieldDateOfBirth,
		Tag:   "required,notfuture",
		Messages: map[string]string{
			"required":  "Date of birth is required",
			"notfuture": "Date of birth cannot be in the future",
		},
		Value: func(f *Form) any {
			if f.Student.DateOfBirth == nil {
				return time.Time{}
			}
			return *f.Student.DateOfBirth
		},
	},
}

// GuardianListRules are the rules on the guardian list as a whole.
var GuardianListRules = []Rule[*Form]{
	{
		Field: FieldGuardians,
		Tag:   "min=1,max=" + strconv.Itoa(MaxGuardians),
		Messages: map[string]string{
			"min": "At least one guardian is required",
			"max": "At most " + strconv.Itoa(MaxGuardians) + " guardians are allowed",
		},
		Value: func(f *Form) any { return f.Guardians },
	},
	{
		Field:    FieldGuardians,
		Tag:      "max=" + strconv.Itoa(MaxPrimaryGuardians),
		Messages: map[string]string{"max": "At most " + strconv.Itoa(MaxPrimaryGuardians) + " primary guardians are allowed"},
		Value:    func(f *Form) any { return PrimaryCount(f.Guardians) },
	},
}

// GuardianRules are the rules for each guardian entry.
var GuardianRules = []Rule[Guardian]{
	{
		Field:    FieldFullName,
		Tag:      "required",
		Messages: map[string]string{"required": "Full name is required"},
		Value:    func(g Guardian) any { return strings.TrimSpace(g.FullName) },
	},
	{
		Field:    FieldPhoneNumber,
		Tag:      "min=10",
		Messages: map[string]string{"min": "Valid phone number is required"},
		Value:    func(g Guardian) any { return strings.TrimSpace(g.PhoneNumber) },
	},
	{
		Field:    FieldEmail,
		Tag:      "omitempty,email",
		Messages: map[string]string{"email": "Invalid email"},
		Value:    func(g Guardian) any { return strings.TrimSpace(g.Email) },
	},
	{
		Field:    FieldRelationship,
		Tag:      "oneof=Parent Guardian Other",
		Messages: map[string]string{"oneof": "Relationship must be one of: Parent, Guardian, Other"},
		Value:    func(g Guardian) any { return g.Relationship },
	},
}

var studentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// validate is safe for concurrent use once built.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !t.After(time.Now())
	})
	_ = v.RegisterValidation("studentid", func(fl validator.FieldLevel) bool {
		return studentIDPattern.MatchString(fl.Field().String())
	})
	return v
}
