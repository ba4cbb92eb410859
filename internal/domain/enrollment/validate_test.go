package enrollment_test

import (
	"testing"
	"time"

	"github.com/dalemusser/studentid/internal/domain/enrollment"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func validGuardian(id string) enrollment.Guardian {
	return enrollment.Guardian{
		ID:           id,
		FullName:     "Sunita Kumar",
		PhoneNumber:  "9876543210",
		Relationship: "Parent",
		IsPrimary:    true,
	}
}

func validForm() *enrollment.Form {
	return &enrollment.Form{
		ID: "form-1",
		Student: enrollment.Student{
			FullName:    "Amit Kumar",
			ClassName:   "5B",
			DateOfBirth: date(2015, time.March, 1),
		},
		Guardians: []enrollment.Guardian{validGuardian("g1")},
		Status:    enrollment.StatusIdle,
	}
}

func TestValidateStep_StudentStep(t *testing.T) {
	future := time.Now().AddDate(1, 0, 0)

	tests := []struct {
		name      string
		mutate    func(f *enrollment.Form)
		wantOK    bool
		wantField string
	}{
		{"all valid", func(f *enrollment.Form) {}, true, ""},
		{"missing name", func(f *enrollment.Form) { f.Student.FullName = "" }, false, "fullName"},
		{"whitespace name", func(f *enrollment.Form) { f.Student.FullName = "   " }, false, "fullName"},
		{"missing class", func(f *enrollment.Form) { f.Student.ClassName = "" }, false, "className"},
		{"missing date of birth", func(f *enrollment.Form) { f.Student.DateOfBirth = nil }, false, "dateOfBirth"},
		{"future date of birth", func(f *enrollment.Form) { f.Student.DateOfBirth = &future }, false, "dateOfBirth"},

		// Fields outside the step never affect the result.
		{"bad student id ignored", func(f *enrollment.Form) { f.Student.StudentID = "bad id!" }, true, ""},
		{"no guardians ignored", func(f *enrollment.Form) { f.Guardians = nil }, true, ""},
		{"bad guardian phone ignored", func(f *enrollment.Form) { f.Guardians[0].PhoneNumber = "12" }, true, ""},
		{"bad guardian email ignored", func(f *enrollment.Form) { f.Guardians[0].Email = "nope" }, true, ""},
		{"bad relationship ignored", func(f *enrollment.Form) { f.Guardians[0].Relationship = "Uncle" }, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(f)
			res := enrollment.ValidateStep(enrollment.StepStudent, f)
			if res.OK() != tt.wantOK {
				t.Fatalf("OK() = %v, want %v (errors: %+v)", res.OK(), tt.wantOK, res.Errors)
			}
			if tt.wantField != "" {
				if _, ok := res.ByField()[tt.wantField]; !ok {
					t.Errorf("expected error on %q, got %+v", tt.wantField, res.Errors)
				}
			}
		})
	}
}

func TestValidateStep_StudentStep_AllCombinations(t *testing.T) {
	// Every combination of the three step fields being valid or not: the step
	// fails exactly when at least one is invalid.
	for mask := 0; mask < 8; mask++ {
		f := validForm()
		f.Guardians = nil // outside the step
		if mask&1 != 0 {
			f.Student.FullName = ""
		}
		if mask&2 != 0 {
			f.Student.ClassName = ""
		}
		if mask&4 != 0 {
			f.Student.DateOfBirth = nil
		}
		res := enrollment.ValidateStep(enrollment.StepStudent, f)
		if res.OK() != (mask == 0) {
			t.Errorf("mask %03b: OK() = %v", mask, res.OK())
		}
		if len(res.Errors) != popcount(mask) {
			t.Errorf("mask %03b: got %d errors, want %d", mask, len(res.Errors), popcount(mask))
		}
	}
}

func popcount(n int) int {
	c := 0
	for ; n > 0; n >>= 1 {
		c += n & 1
	}
	return c
}

func TestValidateStep_GuardiansStep(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *enrollment.Form)
		wantOK    bool
		wantField string
		wantMsg   string
	}{
		{"valid", func(f *enrollment.Form) {}, true, "", ""},
		{"empty list", func(f *enrollment.Form) { f.Guardians = nil }, false, "guardians", "At least one guardian is required"},
		{"short phone", func(f *enrollment.Form) { f.Guardians[0].PhoneNumber = "98765" }, false, "guardians[0].phoneNumber", "Valid phone number is required"},
		{"missing name", func(f *enrollment.Form) { f.Guardians[0].FullName = "" }, false, "guardians[0].fullName", "Full name is required"},
		{"bad email", func(f *enrollment.Form) { f.Guardians[0].Email = "not-an-email" }, false, "guardians[0].email", "Invalid email"},
		{"good email", func(f *enrollment.Form) { f.Guardians[0].Email = "sunita@example.com" }, true, "", ""},
		{"bad relationship", func(f *enrollment.Form) { f.Guardians[0].Relationship = "Uncle" }, false, "guardians[0].relationship", ""},
		{"second guardian invalid", func(f *enrollment.Form) {
			g := validGuardian("g2")
			g.IsPrimary = false
			g.PhoneNumber = ""
			f.Guardians = append(f.Guardians, g)
		}, false, "guardians[1].phoneNumber", ""},
		{"three primaries", func(f *enrollment.Form) {
			f.Guardians = append(f.Guardians, validGuardian("g2"), validGuardian("g3"))
		}, false, "guardians", "At most 2 primary guardians are allowed"},
		{"seven guardians", func(f *enrollment.Form) {
			for i := 0; i < 6; i++ {
				g := validGuardian("x")
				g.IsPrimary = false
				f.Guardians = append(f.Guardians, g)
			}
		}, false, "guardians", "At most 6 guardians are allowed"},
		{"student fields ignored", func(f *enrollment.Form) { f.Student = enrollment.Student{} }, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(f)
			res := enrollment.ValidateStep(enrollment.StepGuardians, f)
			if res.OK() != tt.wantOK {
				t.Fatalf("OK() = %v, want %v (errors: %+v)", res.OK(), tt.wantOK, res.Errors)
			}
			if tt.wantField == "" {
				return
			}
			msg, ok := res.ByField()[tt.wantField]
			if !ok {
				t.Fatalf("expected error on %q, got %+v", tt.wantField, res.Errors)
			}
			if tt.wantMsg != "" && msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestValidateStep_ReviewStepHasNoFields(t *testing.T) {
	res := enrollment.ValidateStep(enrollment.StepReview, &enrollment.Form{})
	if !res.OK() {
		t.Errorf("review step should not validate fields, got %+v", res.Errors)
	}
}

func TestValidateStep_InvalidStep(t *testing.T) {
	res := enrollment.ValidateStep(enrollment.Step(7), validForm())
	if res.OK() {
		t.Error("expected failure for unknown step")
	}
}

func TestValidateAll_CoversEveryStep(t *testing.T) {
	f := validForm()
	f.Student.StudentID = "has space"
	f.Guardians[0].PhoneNumber = "1"

	res := enrollment.ValidateAll(f)
	fields := res.ByField()
	if _, ok := fields["studentId"]; !ok {
		t.Errorf("expected studentId error, got %+v", res.Errors)
	}
	if _, ok := fields["guardians[0].phoneNumber"]; !ok {
		t.Errorf("expected guardian phone error, got %+v", res.Errors)
	}
	if !enrollment.ValidateAll(validForm()).OK() {
		t.Error("valid form should pass ValidateAll")
	}
}

func TestValidate_Idempotent(t *testing.T) {
	f := validForm()
	f.Student.ClassName = ""
	f.Guardians[0].Email = "bad"

	first := enrollment.ValidateAll(f)
	second := enrollment.ValidateAll(f)
	if len(first.Errors) != len(second.Errors) {
		t.Fatalf("error counts differ: %d vs %d", len(first.Errors), len(second.Errors))
	}
	for i := range first.Errors {
		if first.Errors[i] != second.Errors[i] {
			t.Errorf("error %d differs: %+v vs %+v", i, first.Errors[i], second.Errors[i])
		}
	}
	if f.Student.ClassName != "" || f.Guardians[0].Email != "bad" {
		t.Error("validation must not modify the form")
	}
}

func TestResult_First(t *testing.T) {
	var r enrollment.Result
	if r.First() != "" || !r.OK() || r.HasErrors() {
		t.Error("zero Result should pass with no message")
	}
}
