package enrollment

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

// Collection paths used by the batched write.
const (
	StudentsCollection  = "students"
	GuardiansCollection = "guardians"
)

// StudentPath returns the document path of a student.
func StudentPath(studentDocID string) string {
	return StudentsCollection + "/" + studentDocID
}

// GuardianPath returns the document path of a guardian nested under a student.
func GuardianPath(studentDocID, accountID string) string {
	return StudentPath(studentDocID) + "/" + GuardiansCollection + "/" + accountID
}

// AccountRequest describes one account to provision.
type AccountRequest struct {
	LoginID  string
	Password string
	FullName string
	Role     string
}

// AccountProvisioner creates sign-in accounts. A collision must be reported
// as ErrLoginIDInUse (errors.Is).
type AccountProvisioner interface {
	CreateAccount(ctx context.Context, req AccountRequest) (accountID string, err error)
}

// Write is one document of a batch.
type Write struct {
	Path string
	Data any
}

// DocumentStore reserves document identities and commits batches atomically:
// after BatchWrite returns, either every document is visible or none is.
type DocumentStore interface {
	ReserveID(collectionPath string) string
	BatchWrite(ctx context.Context, writes []Write) error
}

// Outcome describes a successful submission.
type Outcome struct {
	StudentName  string                `json:"studentName"`
	StudentID    string                `json:"studentId"`
	StudentDocID string                `json:"studentDocId"`
	SubmittedAt  time.Time             `json:"submittedAt"`
	Guardians    []ProvisionedGuardian `json:"guardians"`
}

// Submitter drives a form through Submitting to Succeeded or Failed.
// Guardian accounts are provisioned one at a time in list order so a failure
// names exactly one guardian.
type Submitter struct {
	Accounts        AccountProvisioner
	Docs            DocumentStore
	IDs             *Generator
	DefaultPassword string
	Log             *zap.Logger
}

// Submit validates the whole form, provisions one account per guardian, then
// writes the student and guardian documents in one batch.
//
// On failure f is left in StatusFailed with LastError set; accounts created
// before the failure are not removed and are listed in the returned error.
func (s *Submitter) Submit(ctx context.Context, f *Form) (*Outcome, error) {
	if err := f.Submittable(); err != nil {
		return nil, err
	}
	if res := ValidateAll(f); res.HasErrors() {
		f.LastError = res.First()
		return nil, &ValidationError{Result: res}
	}

	f.Status = StatusSubmitting
	f.LastError = ""

	studentID := strings.TrimSpace(f.Student.StudentID)
	if studentID == "" {
		studentID = s.IDs.StudentID()
	}
	studentDocID := s.Docs.ReserveID(StudentsCollection)
	now := s.IDs.Now().UTC()

	log := s.logger().With(
		zap.String("form_id", f.ID),
		zap.String("student_id", studentID),
		zap.String("student_doc_id", studentDocID),
	)

	provisioned := make([]ProvisionedGuardian, 0, len(f.Guardians))
	for i, g := range f.Guardians {
		loginID := s.IDs.GuardianLoginID(g.FullName, studentID)
		accountID, err := s.Accounts.CreateAccount(ctx, AccountRequest{
			LoginID:  loginID,
			Password: s.DefaultPassword,
			FullName: strings.TrimSpace(g.FullName),
			Role:     models.RoleParent,
		})
		if err != nil {
			perr := &ProvisioningError{
				Index:       i,
				FullName:    g.FullName,
				LoginID:     loginID,
				Provisioned: provisioned,
				Err:         err,
			}
			log.Error("guardian account provisioning failed",
				zap.Int("guardian_index", i),
				zap.String("login_id", loginID),
				zap.Strings("provisioned_login_ids", provisionedLoginIDs(provisioned)),
				zap.Error(err))
			s.fail(f, perr)
			return nil, perr
		}
		provisioned = append(provisioned, ProvisionedGuardian{
			Index:     i,
			FullName:  g.FullName,
			LoginID:   loginID,
			AccountID: accountID,
		})
	}

	writes := make([]Write, 0, len(provisioned)+1)
	for _, p := range provisioned {
		writes = append(writes, Write{
			Path: GuardianPath(studentDocID, p.AccountID),
			Data: guardianDocument(f.Guardians[p.Index], p.LoginID, now),
		})
	}
	writes = append(writes, Write{
		Path: StudentPath(studentDocID),
		Data: studentDocument(f.Student, studentID, now),
	})

	if err := s.Docs.BatchWrite(ctx, writes); err != nil {
		cerr := &CommitError{StudentID: studentID, Provisioned: provisioned, Err: err}
		log.Error("enrollment batch commit failed",
			zap.Int("writes", len(writes)),
			zap.Strings("provisioned_login_ids", provisionedLoginIDs(provisioned)),
			zap.Error(err))
		s.fail(f, cerr)
		return nil, cerr
	}

	out := &Outcome{
		StudentName:  strings.TrimSpace(f.Student.FullName),
		StudentID:    studentID,
		StudentDocID: studentDocID,
		SubmittedAt:  now,
		Guardians:    provisioned,
	}
	f.Status = StatusSucceeded
	f.LastOutcome = out
	f.UpdatedAt = now
	log.Info("student enrolled", zap.Int("guardians", len(provisioned)))

	return out, nil
}

func (s *Submitter) fail(f *Form, err error) {
	f.Status = StatusFailed
	f.LastError = err.Error()
	f.UpdatedAt = s.IDs.Now().UTC()
}

func (s *Submitter) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func studentDocument(st Student, studentID string, now time.Time) models.Student {
	name := strings.TrimSpace(st.FullName)
	var dob string
	if st.DateOfBirth != nil {
		dob = st.DateOfBirth.Format("2006-01-02")
	}
	return models.Student{
		FullName:        name,
		FullNameCI:      text.Fold(name),
		ClassName:       strings.TrimSpace(st.ClassName),
		StudentID:       studentID,
		DateOfBirth:     dob,
		ProfileImageRef: st.ProfileImage,
		CreatedAt:       now,
	}
}

func guardianDocument(g Guardian, loginID string, now time.Time) models.Guardian {
	return models.Guardian{
		FullName:        strings.TrimSpace(g.FullName),
		LoginID:         loginID,
		Email:           strings.TrimSpace(g.Email),
		PhoneNumber:     strings.TrimSpace(g.PhoneNumber),
		Role:            models.RoleParent,
		Relationship:    g.Relationship,
		IsPrimary:       g.IsPrimary,
		ProfileImageRef: g.ProfileImage,
		CreatedAt:       now,
	}
}

func provisionedLoginIDs(ps []ProvisionedGuardian) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.LoginID
	}
	return out
}
