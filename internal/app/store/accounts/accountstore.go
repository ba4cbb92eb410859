package accountstore

// Terminology: User Identifiers
//   - AccountID / accountID: the MongoDB ObjectID (_id) of an account
//   - LoginID / loginID / login_id: the string typed at sign-in

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/studentid/internal/app/system/paging"
	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"github.com/dalemusser/studentid/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost for stored passwords.
const DefaultCost = 12

// MinPasswordLength applies to passwords chosen by a user.
const MinPasswordLength = 6

var (
	// ErrLoginIDInUse is enrollment.ErrLoginIDInUse so provisioning callers
	// can match it with errors.Is without importing this package.
	ErrLoginIDInUse = enrollment.ErrLoginIDInUse

	ErrNotFound         = errors.New("account not found")
	ErrWrongPassword    = errors.New("wrong password")
	ErrDisabled         = errors.New("account disabled")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrSamePassword     = errors.New("new password must differ from the current one")

	ErrBadRole   = errors.New(`role must be "admin" or "parent"`)
	ErrBadStatus = errors.New(`status must be "active" or "disabled"`)
	// ErrLastAdmin blocks disabling or demoting the only active admin.
	ErrLastAdmin = errors.New("there must be at least one active admin")

	ErrEmptyName  = errors.New("full name is required")
	errEmptyLogin = errors.New("login id is required")
)

type Store struct {
	c    *mongo.Collection
	cost int
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts"), cost: DefaultCost}
}

// WithCost returns a copy of s hashing at cost. Tests use bcrypt.MinCost.
func (s *Store) WithCost(cost int) *Store {
	cp := *s
	cp.cost = cost
	return &cp
}

// CreateAccount provisions an account and returns its ID as hex. Parent
// accounts start with the default password and must change it at first
// sign-in. A taken login ID yields ErrLoginIDInUse.
func (s *Store) CreateAccount(ctx context.Context, req enrollment.AccountRequest) (string, error) {
	a, err := s.create(ctx, req.LoginID, req.Password, req.FullName, req.Role, req.Role == models.RoleParent)
	if err != nil {
		return "", err
	}
	return a.ID.Hex(), nil
}

// Create adds an account whose password an admin chose. The password must
// be at least MinPasswordLength; parents still change it at first sign-in.
// An empty full name defaults to the login ID.
func (s *Store) Create(ctx context.Context, req enrollment.AccountRequest) (models.Account, error) {
	if len(req.Password) < MinPasswordLength {
		return models.Account{}, ErrPasswordTooShort
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		name = req.LoginID
	}
	return s.create(ctx, req.LoginID, req.Password, name, req.Role, req.Role == models.RoleParent)
}

func (s *Store) create(ctx context.Context, loginID, password, fullName, role string, mustChange bool) (models.Account, error) {
	loginID = strings.TrimSpace(loginID)
	if loginID == "" {
		return models.Account{}, errEmptyLogin
	}
	switch role {
	case models.RoleAdmin, models.RoleParent:
	default:
		return models.Account{}, ErrBadRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	fullName = strings.TrimSpace(fullName)
	a := models.Account{
		ID:                 primitive.NewObjectID(),
		LoginID:            loginID,
		LoginIDCI:          text.Fold(loginID),
		FullName:           fullName,
		FullNameCI:         text.Fold(fullName),
		PasswordHash:       string(hash),
		Role:               role,
		Status:             models.StatusActive,
		MustChangePassword: mustChange,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Account{}, fmt.Errorf("%s: %w", loginID, ErrLoginIDInUse)
		}
		return models.Account{}, err
	}
	return a, nil
}

// GetByID loads an account. Missing accounts yield ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByLoginID looks an account up by case-folded login ID.
func (s *Store) GetByLoginID(ctx context.Context, loginID string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"login_id_ci": text.Fold(strings.TrimSpace(loginID))})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Authenticate checks loginID and password. The returned account is set for
// ErrWrongPassword and ErrDisabled too, so callers can audit who tried.
func (s *Store) Authenticate(ctx context.Context, loginID, password string) (*models.Account, error) {
	a, err := s.GetByLoginID(ctx, loginID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return a, ErrWrongPassword
	}
	if a.Status != models.StatusActive {
		return a, ErrDisabled
	}
	return a, nil
}

// ChangePassword replaces the password after verifying current, and clears
// must_change_password.
func (s *Store) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	if len(next) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if current == next {
		return ErrSamePassword
	}
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(current)) != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash":        string(hash),
		"must_change_password": false,
		"updated_at":           time.Now().UTC(),
	}})
	return err
}

// EnsureAdmin creates the bootstrap admin account unless loginID already
// exists. It reports whether an account was created.
func (s *Store) EnsureAdmin(ctx context.Context, loginID, password string) (bool, error) {
	if _, err := s.GetByLoginID(ctx, loginID); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if len(password) < MinPasswordLength {
		return false, ErrPasswordTooShort
	}
	_, err := s.create(ctx, loginID, password, "Administrator", models.RoleAdmin, false)
	if errors.Is(err, ErrLoginIDInUse) {
		// Another instance won the race.
		return false, nil
	}
	return err == nil, err
}

// ListQuery selects a page of accounts in full-name order. Search matches a
// folded substring of the full name or login ID.
type ListQuery struct {
	Search string
	Role   string
	Status string
	After  string
	Before string
	Limit  int
}

// ListPage is one page of accounts.
type ListPage struct {
	Accounts   []models.Account
	Total      int64
	HasPrev    bool
	HasNext    bool
	PrevCursor string
	NextCursor string
}

func (q ListQuery) filter() bson.M {
	f := bson.M{}
	if s := strings.TrimSpace(q.Search); s != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(text.Fold(s))}
		f["$or"] = bson.A{bson.M{"full_name_ci": re}, bson.M{"login_id_ci": re}}
	}
	if q.Role != "" {
		f["role"] = q.Role
	}
	if q.Status != "" {
		f["status"] = q.Status
	}
	return f
}

// List returns one page of accounts.
func (s *Store) List(ctx context.Context, q ListQuery) (ListPage, error) {
	if q.Limit <= 0 {
		q.Limit = paging.DefaultPageSize
	}
	base := q.filter()

	total, err := s.c.CountDocuments(ctx, base)
	if err != nil {
		return ListPage{}, err
	}

	cfg := paging.ConfigureKeyset(q.Before, q.After)
	find := options.Find().SetProjection(bson.M{"password_hash": 0})
	cfg.ApplyToFind(find, "full_name_ci", q.Limit)

	filter := base
	if window := cfg.KeysetWindow("full_name_ci"); window != nil {
		filter = bson.M{"$and": []bson.M{base, window}}
	}

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return ListPage{}, err
	}
	var rows []models.Account
	if err := cur.All(ctx, &rows); err != nil {
		return ListPage{}, err
	}

	page := paging.TrimPage(&rows, q.Before, q.After, q.Limit)
	if q.Before != "" {
		paging.Reverse(rows)
	}
	prev, next := paging.BuildCursors(rows,
		func(a models.Account) string { return a.FullNameCI },
		func(a models.Account) primitive.ObjectID { return a.ID })

	return ListPage{
		Accounts:   rows,
		Total:      total,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
		PrevCursor: prev,
		NextCursor: next,
	}, nil
}

// CountActiveAdmins returns the number of active admin accounts.
func (s *Store) CountActiveAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"role": models.RoleAdmin, "status": models.StatusActive})
}

// Patch holds admin-editable account fields; nil means unchanged.
type Patch struct {
	FullName *string
	Role     *string
	Status   *string
}

// Update applies p to the account and returns the result. An update that
// would leave no active admin fails with ErrLastAdmin.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) (*models.Account, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	role, status := a.Role, a.Status
	if p.FullName != nil {
		name := strings.TrimSpace(*p.FullName)
		if name == "" {
			return nil, ErrEmptyName
		}
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if p.Role != nil {
		switch *p.Role {
		case models.RoleAdmin, models.RoleParent:
		default:
			return nil, ErrBadRole
		}
		role = *p.Role
		set["role"] = role
	}
	if p.Status != nil {
		switch *p.Status {
		case models.StatusActive, models.StatusDisabled:
		default:
			return nil, ErrBadStatus
		}
		status = *p.Status
		set["status"] = status
	}
	if len(set) == 0 {
		return a, nil
	}

	wasActiveAdmin := a.Role == models.RoleAdmin && a.Status == models.StatusActive
	staysActiveAdmin := role == models.RoleAdmin && status == models.StatusActive
	if wasActiveAdmin && !staysActiveAdmin {
		n, err := s.CountActiveAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if n <= 1 {
			return nil, ErrLastAdmin
		}
	}

	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.Account
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}
