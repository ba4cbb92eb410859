// internal/domain/models/guardian.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Guardian relationships.
const (
	RelationshipParent   = "Parent"
	RelationshipGuardian = "Guardian"
	RelationshipOther    = "Other"
)

// Relationships lists the allowed relationship values in display order.
var Relationships = []string{RelationshipParent, RelationshipGuardian, RelationshipOther}

// Guardian is the persisted guardian sub-document of a Student.
//
// ID is the guardian's account ID (accounts._id), so a signed-in guardian
// finds their students by looking up guardian documents with their own ID.
type Guardian struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentDocID    primitive.ObjectID `bson:"student_doc_id,omitempty" json:"student_doc_id"`
	FullName        string             `bson:"full_name" json:"full_name"`
	LoginID         string             `bson:"login_id" json:"login_id"`
	Email           string             `bson:"email" json:"email"` // contact email, may be empty
	PhoneNumber     string             `bson:"phone_number" json:"phone_number"`
	Role            string             `bson:"role" json:"role"`
	Relationship    string             `bson:"relationship" json:"relationship"`
	IsPrimary       bool               `bson:"is_primary" json:"is_primary"`
	ProfileImageRef string             `bson:"profile_image_ref,omitempty" json:"profile_image_ref,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
