// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/studentid/internal/app/store/audit"
	"github.com/dalemusser/studentid/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates each collection if it is missing and attaches its
// $jsonSchema validator. Servers without collMod validator support (some
// DocumentDB versions) get the collections only; that is logged, not an error.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, c := range collections {
		if err := ensureValidated(ctx, db, c.name, c.schema()); err != nil {
			problems = append(problems, c.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

var collections = []struct {
	name   string
	schema func() bson.M
}{
	{"accounts", accountsSchema},
	{"students", studentsSchema},
	{"students_guardians", guardiansSchema},
	{"audit_events", auditEventsSchema},
}

func ensureValidated(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	log := zap.L().With(zap.String("collection", name))

	created, err := ensureCollection(ctx, db, name)
	if err != nil {
		log.Warn("create collection failed", zap.Error(err))
		return err
	}
	if created {
		log.Info("created collection")
	}

	err = db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}).Err()
	switch {
	case err == nil:
		log.Info("validator ensured")
		return nil
	case validatorUnsupported(err):
		log.Info("validator skipped (unsupported)")
		return nil
	default:
		return err
	}
}

// ensureCollection reports created only when this call made the collection.
// A concurrent creator is not an error.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	names, listErr := db.ListCollectionNames(ctx, bson.M{"name": name})
	if listErr == nil && len(names) > 0 {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if commandErrorIs(err, codeNamespaceExists, "already exists", "namespace exists") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Server error codes.
const (
	codeNamespaceExists = 48
	codeCommandNotFound = 59
	codeNotImplemented  = 115
)

func validatorUnsupported(err error) bool {
	return commandErrorIs(err, codeCommandNotFound, "no such command") ||
		commandErrorIs(err, codeNotImplemented, "not implemented", "not supported")
}

// commandErrorIs matches a server command error by code, or any error whose
// message contains one of phrases. Older servers and DocumentDB do not
// always send codes.
func commandErrorIs(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

func accountsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"login_id", "login_id_ci", "full_name", "password_hash", "role", "status"},
			"properties": bson.M{
				"login_id":             bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"login_id_ci":          bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name":            bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci":         bson.M{"bsonType": "string"},
				"password_hash":        bson.M{"bsonType": "string", "minLength": 1},
				"role":                 bson.M{"enum": bson.A{models.RoleAdmin, models.RoleParent}},
				"status":               bson.M{"enum": bson.A{models.StatusActive, models.StatusDisabled}},
				"must_change_password": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func studentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "full_name_ci", "class_name", "student_id", "created_at"},
			"properties": bson.M{
				"full_name":     bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci":  bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"class_name":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"student_id":    bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},
				"date_of_birth": bson.M{"bsonType": "string"},
				"created_at":    bson.M{"bsonType": "date"},
			},
		},
	}
}

func guardiansSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"student_doc_id", "full_name", "login_id", "phone_number", "role", "is_primary"},
			"properties": bson.M{
				"student_doc_id": bson.M{"bsonType": "objectId"},
				"full_name":      bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"login_id":       bson.M{"bsonType": "string", "minLength": 1},
				"email":          bson.M{"bsonType": "string"},
				"phone_number":   bson.M{"bsonType": "string", "minLength": 10},
				"role":           bson.M{"enum": bson.A{models.RoleParent}},
				"relationship":   bson.M{"bsonType": "string"},
				"is_primary":     bson.M{"bsonType": "bool"},
			},
		},
	}
}

func auditEventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"timestamp", "category", "event_type"},
			"properties": bson.M{
				"timestamp":  bson.M{"bsonType": "date"},
				"category":   bson.M{"enum": bson.A{audit.CategoryAuth, audit.CategoryEnrollment}},
				"event_type": bson.M{"bsonType": "string", "minLength": 1},
				"success":    bson.M{"bsonType": "bool"},
			},
		},
	}
}
