// internal/domain/models/student.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student is one enrolled child. Guardians live in the students_guardians
// collection keyed by the guardian's account ID, with student_doc_id pointing back here.
type Student struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName        string             `bson:"full_name" json:"full_name"`
	FullNameCI      string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	ClassName       string             `bson:"class_name" json:"class_name"`
	StudentID       string             `bson:"student_id" json:"student_id"`
	DateOfBirth     string             `bson:"date_of_birth" json:"date_of_birth"` // YYYY-MM-DD
	ProfileImageRef string             `bson:"profile_image_ref,omitempty" json:"profile_image_ref,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
