package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that read chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test data directly, bypassing the stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateAccount inserts an active account with the given password.
// bcrypt.MinCost keeps the fixture fast.
func (f *Fixtures) CreateAccount(ctx context.Context, fullName, loginID, password, role string) models.Account {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	a := models.Account{
		ID:           primitive.NewObjectID(),
		LoginID:      loginID,
		LoginIDCI:    text.Fold(loginID),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("accounts").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test account: %v", err)
	}
	return a
}

// CreateStudent inserts a student document.
func (f *Fixtures) CreateStudent(ctx context.Context, fullName, className, studentID string) models.Student {
	f.t.Helper()

	s := models.Student{
		ID:          primitive.NewObjectID(),
		FullName:    fullName,
		FullNameCI:  text.Fold(fullName),
		ClassName:   className,
		StudentID:   studentID,
		DateOfBirth: "2015-03-01",
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("students").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test student: %v", err)
	}
	return s
}

// CreateGuardian inserts a guardian document for student, keyed by accountID.
func (f *Fixtures) CreateGuardian(ctx context.Context, student primitive.ObjectID, accountID primitive.ObjectID, fullName, loginID string, primary bool) models.Guardian {
	f.t.Helper()

	g := models.Guardian{
		ID:           accountID,
		StudentDocID: student,
		FullName:     fullName,
		LoginID:      loginID,
		PhoneNumber:  "9876543210",
		Role:         models.RoleParent,
		Relationship: models.RelationshipParent,
		IsPrimary:    primary,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := f.db.Collection("students_guardians").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test guardian: %v", err)
	}
	return g
}
