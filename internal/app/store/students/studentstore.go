package studentstore

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/dalemusser/studentid/internal/app/system/paging"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no student or guardian matches.
var ErrNotFound = errors.New("not found")

type Store struct {
	students  *mongo.Collection
	guardians *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		students:  db.Collection("students"),
		guardians: db.Collection("students_guardians"),
	}
}

// ListQuery selects a page of students. Search matches a case- and
// diacritic-insensitive substring of the full name.
type ListQuery struct {
	Search    string
	ClassName string
	After     string
	Before    string
	Limit     int
}

// ListPage is one page of students in full-name order.
type ListPage struct {
	Students   []models.Student
	Total      int64
	HasPrev    bool
	HasNext    bool
	PrevCursor string
	NextCursor string
}

func (q ListQuery) filter() bson.M {
	f := bson.M{}
	if s := strings.TrimSpace(q.Search); s != "" {
		f["full_name_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(s))}
	}
	if c := strings.TrimSpace(q.ClassName); c != "" {
		f["class_name"] = c
	}
	return f
}

// List returns one page of students.
func (s *Store) List(ctx context.Context, q ListQuery) (ListPage, error) {
	if q.Limit <= 0 {
		q.Limit = paging.DefaultPageSize
	}
	base := q.filter()

	total, err := s.students.CountDocuments(ctx, base)
	if err != nil {
		return ListPage{}, err
	}

	cfg := paging.ConfigureKeyset(q.Before, q.After)
	find := options.Find()
	cfg.ApplyToFind(find, "full_name_ci", q.Limit)

	filter := base
	if window := cfg.KeysetWindow("full_name_ci"); window != nil {
		filter = bson.M{"$and": []bson.M{base, window}}
	}

	cur, err := s.students.Find(ctx, filter, find)
	if err != nil {
		return ListPage{}, err
	}
	var rows []models.Student
	if err := cur.All(ctx, &rows); err != nil {
		return ListPage{}, err
	}

	page := paging.TrimPage(&rows, q.Before, q.After, q.Limit)
	if q.Before != "" {
		paging.Reverse(rows)
	}
	prev, next := paging.BuildCursors(rows,
		func(st models.Student) string { return st.FullNameCI },
		func(st models.Student) primitive.ObjectID { return st.ID })

	return ListPage{
		Students:   rows,
		Total:      total,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
		PrevCursor: prev,
		NextCursor: next,
	}, nil
}

// GetByID loads a student by document ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Student, error) {
	return s.findStudent(ctx, bson.M{"_id": id})
}

// GetByStudentID loads the most recently created student carrying studentID.
func (s *Store) GetByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findStudent(ctx, bson.M{"student_id": strings.TrimSpace(studentID)}, opts)
}

func (s *Store) findStudent(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Student, error) {
	var st models.Student
	if err := s.students.FindOne(ctx, filter, opts...).Decode(&st); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// Guardians returns a student's guardians, primaries first, then by name.
func (s *Store) Guardians(ctx context.Context, studentDocID primitive.ObjectID) ([]models.Guardian, error) {
	opts := options.Find().SetSort(bson.D{{Key: "is_primary", Value: -1}, {Key: "full_name", Value: 1}})
	cur, err := s.guardians.Find(ctx, bson.M{"student_doc_id": studentDocID}, opts)
	if err != nil {
		return nil, err
	}
	out := []models.Guardian{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GuardianByAccount returns the guardian document owned by an account.
func (s *Store) GuardianByAccount(ctx context.Context, accountID primitive.ObjectID) (*models.Guardian, error) {
	var g models.Guardian
	if err := s.guardians.FindOne(ctx, bson.M{"_id": accountID}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// StudentsForGuardian returns the students an account is a guardian of.
func (s *Store) StudentsForGuardian(ctx context.Context, accountID primitive.ObjectID) ([]models.Student, error) {
	cur, err := s.guardians.Find(ctx, bson.M{"_id": accountID}, options.Find().SetProjection(bson.M{"student_doc_id": 1}))
	if err != nil {
		return nil, err
	}
	var links []struct {
		StudentDocID primitive.ObjectID `bson:"student_doc_id"`
	}
	if err := cur.All(ctx, &links); err != nil {
		return nil, err
	}
	out := []models.Student{}
	if len(links) == 0 {
		return out, nil
	}
	ids := make([]primitive.ObjectID, len(links))
	for i, l := range links {
		ids[i] = l.StudentDocID
	}

	scur, err := s.students.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	if err := scur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RosterEntry is a student with its guardians.
type RosterEntry struct {
	models.Student `bson:",inline"`
	Guardians      []models.Guardian `bson:"guardians"`
}

// Roster returns every student matching q (cursor and limit ignored) with
// guardians joined, in class then name order.
func (s *Store) Roster(ctx context.Context, q ListQuery) ([]RosterEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: q.filter()}},
		{{Key: "$sort", Value: bson.D{{Key: "class_name", Value: 1}, {Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "students_guardians"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "student_doc_id"},
			{Key: "as", Value: "guardians"},
		}}},
	}
	cur, err := s.students.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	out := []RosterEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
