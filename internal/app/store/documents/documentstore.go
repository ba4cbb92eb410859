// Package documentstore maps slash-separated document paths onto MongoDB
// collections and commits batches of writes atomically.
//
//	students/<id>                      -> students, _id=<id>
//	students/<sid>/guardians/<gid>     -> students_guardians, _id=<gid>, student_doc_id=<sid>
//
// Any <collection>/<id> pair nests the same way: the child collection is
// named "<parent>_<child>" and carries "<singular parent>_doc_id".
package documentstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/studentid/internal/app/system/txn"
	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const cleanupTimeout = 10 * time.Second

// ErrBadPath is returned for a path that does not name a document.
var ErrBadPath = errors.New("invalid document path")

// Store implements enrollment.DocumentStore on a MongoDB database.
type Store struct {
	db  *mongo.Database
	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

// Location is where a document path lands.
type Location struct {
	Collection string
	ID         any    // primitive.ObjectID when the segment is a hex ObjectID
	ParentKey  string // empty for top-level documents
	ParentID   any
}

// Resolve parses a document path.
func Resolve(path string) (Location, error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return Location{}, fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	for _, s := range segs {
		if s == "" {
			return Location{}, fmt.Errorf("%w: %q", ErrBadPath, path)
		}
	}

	loc := Location{Collection: segs[0], ID: docID(segs[1])}
	for i := 2; i < len(segs); i += 2 {
		parent := segs[i-2]
		loc.ParentKey = strings.TrimSuffix(parent, "s") + "_doc_id"
		loc.ParentID = docID(segs[i-1])
		loc.Collection = loc.Collection + "_" + segs[i]
		loc.ID = docID(segs[i+1])
	}
	return loc, nil
}

func docID(s string) any {
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return oid
	}
	return s
}

// ReserveID returns a fresh document ID for collectionPath. IDs are
// ObjectIDs so they sort by creation time.
func (s *Store) ReserveID(collectionPath string) string {
	return primitive.NewObjectID().Hex()
}

type inserted struct {
	coll string
	id   any
}

// BatchWrite inserts every write inside one transaction. On deployments
// without transactions the inserts run in order and, if one fails, the
// earlier ones are deleted again (best effort).
func (s *Store) BatchWrite(ctx context.Context, writes []enrollment.Write) error {
	docs := make([]bson.M, len(writes))
	locs := make([]Location, len(writes))
	for i, w := range writes {
		loc, err := Resolve(w.Path)
		if err != nil {
			return err
		}
		doc, err := toDocument(w.Data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", w.Path, err)
		}
		doc["_id"] = loc.ID
		if loc.ParentKey != "" {
			doc[loc.ParentKey] = loc.ParentID
		}
		docs[i], locs[i] = doc, loc
	}

	var done []inserted
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		done = done[:0]
		for i, doc := range docs {
			if _, err := s.db.Collection(locs[i].Collection).InsertOne(ctx, doc); err != nil {
				return fmt.Errorf("insert %s: %w", writes[i].Path, err)
			}
			done = append(done, inserted{coll: locs[i].Collection, id: locs[i].ID})
		}
		return nil
	})
	if err != nil {
		s.undo(done)
	}
	return err
}

// undo deletes documents a failed non-transactional batch left behind. After
// an aborted transaction nothing matches and the deletes are no-ops.
func (s *Store) undo(done []inserted) {
	if len(done) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	var removed int64
	for _, d := range done {
		res, err := s.db.Collection(d.coll).DeleteOne(ctx, bson.M{"_id": d.id})
		if err != nil {
			s.log.Error("batch cleanup delete failed",
				zap.String("collection", d.coll),
				zap.Any("id", d.id),
				zap.Error(err))
			continue
		}
		removed += res.DeletedCount
	}
	if removed > 0 {
		s.log.Warn("partial batch removed after failure", zap.Int64("documents", removed))
	}
}

func toDocument(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
