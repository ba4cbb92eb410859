// internal/domain/models/account.go
package models

// Terminology: User Identifiers
//   - AccountID / accountID: The MongoDB ObjectID (_id) of an account record
//   - LoginID / loginID / login_id: The human-readable string used to sign in

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account roles.
const (
	RoleAdmin  = "admin"
	RoleParent = "parent"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Account is a sign-in identity. Guardian accounts are provisioned during
// enrollment with a synthesized login ID and a default password.
type Account struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LoginID            string             `bson:"login_id" json:"login_id"`
	LoginIDCI          string             `bson:"login_id_ci" json:"-"`
	FullName           string             `bson:"full_name" json:"full_name"`
	FullNameCI         string             `bson:"full_name_ci" json:"-"`
	PasswordHash       string             `bson:"password_hash" json:"-"`
	Role               string             `bson:"role" json:"role"` // admin | parent
	Status             string             `bson:"status" json:"status"`
	MustChangePassword bool               `bson:"must_change_password" json:"must_change_password"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
