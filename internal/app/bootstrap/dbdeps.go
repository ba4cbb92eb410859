// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis holds enrollment drafts and per-form submission locks.
	Redis *redis.Client
}
