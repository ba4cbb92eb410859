// Package enrollment implements the student enrollment workflow: the wizard
// form state, its validation schema, guardian list rules, and the submission
// that provisions guardian accounts and writes the student documents.
package enrollment

import (
	"strings"
	"time"

	"github.com/dalemusser/studentid/internal/domain/models"
)

// Guardian list bounds.
const (
	MaxGuardians        = 6
	MaxPrimaryGuardians = 2
)

// Step is an index into Steps.
type Step int

const (
	StepStudent Step = iota
	StepGuardians
	StepReview
)

// StepDef declares which fields a step validates.
type StepDef struct {
	Step   Step     `json:"step"`
	Title  string   `json:"title"`
	Fields []string `json:"fields"`
}

// Steps is the ordered wizard.
var Steps = []StepDef{
	{Step: StepStudent, Title: "Student", Fields: []string{FieldFullName, FieldClassName, FieldDateOfBirth}},
	{Step: StepGuardians, Title: "Guardians", Fields: []string{FieldGuardians}},
	{Step: StepReview, Title: "Review"},
}

// Status is the submission state of a form.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Student holds the student fields of a form.
type Student struct {
	FullName     string     `json:"fullName"`
	ClassName    string     `json:"className"`
	StudentID    string     `json:"studentId,omitempty"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	ProfileImage string     `json:"profileImage,omitempty"`
}

// Guardian is one guardian entry of a form. ID is a form-local key.
type Guardian struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	PhoneNumber  string `json:"phoneNumber"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"isPrimary"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Form is the state of one enrollment session. It is owned by a single
// session; nothing else writes it.
type Form struct {
	ID        string     `json:"id"`
	Student   Student    `json:"student"`
	Guardians []Guardian `json:"guardians"`
	Step      Step       `json:"step"`
	Status    Status     `json:"status"`
	LastError string     `json:"lastError,omitempty"`
	// LastOutcome is the most recent successful submission. Reset keeps it.
	LastOutcome *Outcome  `json:"lastOutcome,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewForm returns a form with one primary Parent guardian, at the first step.
func NewForm(id string, ids *Generator) *Form {
	f := &Form{ID: id}
	f.Reset(ids)
	return f
}

// Reset re-initializes f for the next enrollment, keeping its ID and
// LastOutcome.
func (f *Form) Reset(ids *Generator) {
	now := ids.Now()
	*f = Form{
		ID:          f.ID,
		LastOutcome: f.LastOutcome,
		Guardians: []Guardian{{
			ID:           ids.LocalID(),
			Relationship: models.RelationshipParent,
			IsPrimary:    true,
		}},
		Step:      StepStudent,
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Next validates the current step and, if it passes, advances one step.
// The review step is the last; Next there only validates.
func (f *Form) Next() Result {
	res := ValidateStep(f.Step, f)
	if res.OK() && int(f.Step) < len(Steps)-1 {
		f.Step++
	}
	return res
}

// Back moves one step back; it never goes below the first step.
func (f *Form) Back() {
	if f.Step > StepStudent {
		f.Step--
	}
}

// GoTo jumps back to an already reached step.
func (f *Form) GoTo(step Step) error {
	if step < StepStudent || step > f.Step {
		return ErrInvalidStep
	}
	f.Step = step
	return nil
}

// Review returns the guardians with both a name and a phone number, in
// list order, whatever their validation state.
func (f *Form) Review() []Guardian {
	out := make([]Guardian, 0, len(f.Guardians))
	for _, g := range f.Guardians {
		if strings.TrimSpace(g.FullName) != "" && strings.TrimSpace(g.PhoneNumber) != "" {
			out = append(out, g)
		}
	}
	return out
}

// GuardianIndex returns the list position of the guardian with local ID id.
func (f *Form) GuardianIndex(id string) (int, error) {
	for i, g := range f.Guardians {
		if g.ID == id {
			return i, nil
		}
	}
	return -1, ErrGuardianNotFound
}

// Submittable reports whether f may enter the Submitting state. Only idle
// and failed forms may.
func (f *Form) Submittable() error {
	switch f.Status {
	case StatusSubmitting:
		return ErrSubmissionInFlight
	case StatusSucceeded:
		return ErrAlreadySubmitted
	}
	if f.Step != StepReview {
		return ErrNotAtReview
	}
	return nil
}

// StudentPatch holds editable student fields; nil means unchanged.
type StudentPatch struct {
	FullName     *string    `json:"fullName,omitempty"`
	ClassName    *string    `json:"className,omitempty"`
	StudentID    *string    `json:"studentId,omitempty"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	ProfileImage *string    `json:"profileImage,omitempty"`
}

// UpdateStudent applies p to the student fields of f.
func (f *Form) UpdateStudent(p StudentPatch) {
	if p.FullName != nil {
		f.Student.FullName = *p.FullName
	}
	if p.ClassName != nil {
		f.Student.ClassName = *p.ClassName
	}
	if p.StudentID != nil {
		f.Student.StudentID = *p.StudentID
	}
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		f.Student.DateOfBirth = &dob
	}
	if p.ProfileImage != nil {
		f.Student.ProfileImage = *p.ProfileImage
	}
}
