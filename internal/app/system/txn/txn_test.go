package txn_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/studentid/internal/app/system/txn"
	"github.com/dalemusser/studentid/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some random error"), false},
		{"command error code 20", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"}, true},
		{"command error code 263", mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"}, true},
		{"other command error code", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{"transaction and replica set", errors.New("TRANSACTION failed: not a Replica Set member"), true},
		{"session not supported", errors.New("session operations are not supported on this server"), true},
		{"transaction alone", errors.New("transaction failed"), false},
		{"wrapped command error", errorsJoin(mongo.CommandError{Code: 20}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := txn.IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("insert students/x"), err)
}

func TestRun_CommitsOrFallsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := txn.Run(ctx, db, zap.NewNop(), func(ctx context.Context) error {
		_, err := db.Collection("students").InsertOne(ctx, bson.M{"full_name": "Amit Kumar"})
		return err
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	n, _ := db.Collection("students").CountDocuments(ctx, bson.M{})
	if n != 1 {
		t.Errorf("students = %d, want 1", n)
	}
}

func TestRun_ReturnsFnError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	boom := errors.New("boom")
	err := txn.Run(ctx, db, nil, func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want boom", err)
	}
}
