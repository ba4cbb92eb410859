package enrollment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGuardianLimit is returned when adding beyond MaxGuardians.
	ErrGuardianLimit = &CapacityError{Op: "add", Message: fmt.Sprintf("Maximum %d guardians allowed.", MaxGuardians)}
	// ErrLastGuardian is returned when removing the only remaining guardian.
	ErrLastGuardian = &CapacityError{Op: "remove", Message: "At least one guardian is required."}
	// ErrPrimaryLimit is returned when marking a guardian primary would exceed MaxPrimaryGuardians.
	ErrPrimaryLimit = &CapacityError{Op: "primary", Message: fmt.Sprintf("Maximum %d primary guardians allowed.", MaxPrimaryGuardians)}

	// ErrConfirmationRequired is returned by RemoveGuardian when the caller has
	// not confirmed the destructive action.
	ErrConfirmationRequired = errors.New("removing a guardian requires confirmation")
	// ErrGuardianNotFound is returned for an out-of-range index or unknown local ID.
	ErrGuardianNotFound = errors.New("guardian not found")

	// ErrSubmissionInFlight is returned when a form is already being submitted.
	ErrSubmissionInFlight = errors.New("a submission for this form is already in progress")
	// ErrAlreadySubmitted is returned when submitting a form that already
	// succeeded. Reset it before the next enrollment.
	ErrAlreadySubmitted = errors.New("this form has already been submitted")
	// ErrNotAtReview is returned when submitting a form that has not reached the review step.
	ErrNotAtReview = errors.New("the form must reach the review step before it can be submitted")
	// ErrInvalidStep is returned for a step index outside the step list or not yet reached.
	ErrInvalidStep = errors.New("invalid step")

	// ErrLoginIDInUse is what an AccountProvisioner returns (wrapped or bare)
	// when the login identifier already belongs to an account.
	ErrLoginIDInUse = errors.New("login identifier already in use")
)

// CapacityError reports a guardian add/remove/primary-toggle that would break
// a cardinality bound. The list is left unchanged.
type CapacityError struct {
	Op      string
	Message string
}

func (e *CapacityError) Error() string { return e.Message }

// ValidationError carries the failing Result of a step or full-form check.
type ValidationError struct {
	Result Result
}

func (e *ValidationError) Error() string {
	if first := e.Result.First(); first != "" {
		return "validation failed: " + first
	}
	return "validation failed"
}

// ProvisionedGuardian is one fact of the provisioning saga: the guardian at
// Index now has an account.
type ProvisionedGuardian struct {
	Index     int    `json:"index"`
	FullName  string `json:"fullName"`
	LoginID   string `json:"loginId"`
	AccountID string `json:"accountId"`
}

// ProvisioningError reports that account creation failed for one guardian.
// Provisioned lists the accounts created earlier in the same submission;
// they are left in place.
type ProvisioningError struct {
	Index       int
	FullName    string
	LoginID     string
	Provisioned []ProvisionedGuardian
	Err         error
}

func (e *ProvisioningError) Error() string {
	msg := fmt.Sprintf("creating account %q for guardian %d (%s): %v", e.LoginID, e.Index+1, e.FullName, e.Err)
	if len(e.Provisioned) > 0 {
		msg += "; accounts already created: " + strings.Join(provisionedLoginIDs(e.Provisioned), ", ")
	}
	return msg
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// CommitError reports that the batched write failed. No student or guardian
// document is visible, but every account in Provisioned exists.
type CommitError struct {
	StudentID   string
	Provisioned []ProvisionedGuardian
	Err         error
}

func (e *CommitError) Error() string {
	msg := fmt.Sprintf("saving student %s: %v", e.StudentID, e.Err)
	if len(e.Provisioned) > 0 {
		msg += "; accounts already created: " + strings.Join(provisionedLoginIDs(e.Provisioned), ", ")
	}
	return msg
}

func (e *CommitError) Unwrap() error { return e.Err }
