package studentstore_test

import (
	"errors"
	"fmt"
	"testing"

	studentstore "github.com/dalemusser/studentid/internal/app/store/students"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/dalemusser/studentid/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func names(rows []models.Student) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.FullName
	}
	return out
}

func TestList_SearchAndClass(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	fx.CreateStudent(ctx, "Amit Kumar", "5B", "SID1")
	fx.CreateStudent(ctx, "Zoë Kumar", "4A", "SID2")
	fx.CreateStudent(ctx, "Riya Shah", "5B", "SID3")

	s := studentstore.New(db)

	page, err := s.List(ctx, studentstore.ListQuery{Search: "kumar"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := names(page.Students); fmt.Sprint(got) != "[Amit Kumar Zoë Kumar]" {
		t.Errorf("search kumar = %v", got)
	}
	if page.Total != 2 {
		t.Errorf("Total = %d, want 2", page.Total)
	}

	page, err = s.List(ctx, studentstore.ListQuery{Search: "zoe"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Students) != 1 {
		t.Errorf("diacritic-folded search returned %v", names(page.Students))
	}

	page, err = s.List(ctx, studentstore.ListQuery{ClassName: "5B"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := names(page.Students); fmt.Sprint(got) != "[Amit Kumar Riya Shah]" {
		t.Errorf("class 5B = %v", got)
	}

	page, err = s.List(ctx, studentstore.ListQuery{Search: "a.*"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Students) != 0 {
		t.Errorf("regex metacharacters should match literally, got %v", names(page.Students))
	}
}

func TestList_Paging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	for i := 0; i < 5; i++ {
		fx.CreateStudent(ctx, fmt.Sprintf("Student %d", i), "1A", fmt.Sprintf("SID%d", i))
	}
	s := studentstore.New(db)

	first, err := s.List(ctx, studentstore.ListQuery{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if fmt.Sprint(names(first.Students)) != "[Student 0 Student 1]" {
		t.Fatalf("page 1 = %v", names(first.Students))
	}
	if first.HasPrev || !first.HasNext {
		t.Errorf("page 1 HasPrev=%v HasNext=%v", first.HasPrev, first.HasNext)
	}

	second, err := s.List(ctx, studentstore.ListQuery{Limit: 2, After: first.NextCursor})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if fmt.Sprint(names(second.Students)) != "[Student 2 Student 3]" {
		t.Fatalf("page 2 = %v", names(second.Students))
	}
	if !second.HasPrev || !second.HasNext {
		t.Errorf("page 2 HasPrev=%v HasNext=%v", second.HasPrev, second.HasNext)
	}

	back, err := s.List(ctx, studentstore.ListQuery{Limit: 2, Before: second.PrevCursor})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if fmt.Sprint(names(back.Students)) != "[Student 0 Student 1]" {
		t.Errorf("back = %v", names(back.Students))
	}
	if back.HasPrev {
		t.Error("first page reached backwards should have no previous page")
	}

	last, err := s.List(ctx, studentstore.ListQuery{Limit: 2, After: second.NextCursor})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if fmt.Sprint(names(last.Students)) != "[Student 4]" || last.HasNext {
		t.Errorf("last = %v HasNext=%v", names(last.Students), last.HasNext)
	}
}

func TestGetByID_AndStudentID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	st := fx.CreateStudent(ctx, "Amit Kumar", "5B", "SID1700000000000")
	s := studentstore.New(db)

	got, err := s.GetByID(ctx, st.ID)
	if err != nil || got.StudentID != st.StudentID {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}
	got, err = s.GetByStudentID(ctx, " SID1700000000000 ")
	if err != nil || got.ID != st.ID {
		t.Fatalf("GetByStudentID = %+v, %v", got, err)
	}

	if _, err := s.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, studentstore.ErrNotFound) {
		t.Errorf("missing GetByID err = %v", err)
	}
	if _, err := s.GetByStudentID(ctx, "SID0"); !errors.Is(err, studentstore.ErrNotFound) {
		t.Errorf("missing GetByStudentID err = %v", err)
	}
}

func TestGuardians_OrderAndLookups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	st := fx.CreateStudent(ctx, "Amit Kumar", "5B", "SID1")
	other := fx.CreateStudent(ctx, "Riya Kumar", "3C", "SID2")
	a1 := primitive.NewObjectID()
	a2 := primitive.NewObjectID()
	fx.CreateGuardian(ctx, st.ID, a1, "Ravi Kumar", "ravikumar", false)
	fx.CreateGuardian(ctx, st.ID, a2, "Sunita Kumar", "sunitakumar", true)

	s := studentstore.New(db)
	gs, err := s.Guardians(ctx, st.ID)
	if err != nil {
		t.Fatalf("Guardians: %v", err)
	}
	if len(gs) != 2 || gs[0].FullName != "Sunita Kumar" || !gs[0].IsPrimary {
		t.Errorf("Guardians order = %+v", gs)
	}

	none, err := s.Guardians(ctx, other.ID)
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("Guardians(no guardians) = %v, %v; want empty non-nil", none, err)
	}

	g, err := s.GuardianByAccount(ctx, a1)
	if err != nil || g.StudentDocID != st.ID {
		t.Errorf("GuardianByAccount = %+v, %v", g, err)
	}
	if _, err := s.GuardianByAccount(ctx, primitive.NewObjectID()); !errors.Is(err, studentstore.ErrNotFound) {
		t.Errorf("missing guardian err = %v", err)
	}

	mine, err := s.StudentsForGuardian(ctx, a2)
	if err != nil || len(mine) != 1 || mine[0].ID != st.ID {
		t.Errorf("StudentsForGuardian = %+v, %v", mine, err)
	}
	nobody, err := s.StudentsForGuardian(ctx, primitive.NewObjectID())
	if err != nil || len(nobody) != 0 {
		t.Errorf("StudentsForGuardian(unknown) = %+v, %v", nobody, err)
	}
}

func TestRoster(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	b := fx.CreateStudent(ctx, "Amit Kumar", "5B", "SID1")
	fx.CreateStudent(ctx, "Riya Shah", "4A", "SID2")
	fx.CreateGuardian(ctx, b.ID, primitive.NewObjectID(), "Sunita Kumar", "sunitakumar", true)

	s := studentstore.New(db)
	rows, err := s.Roster(ctx, studentstore.ListQuery{})
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Roster len = %d", len(rows))
	}
	if rows[0].ClassName != "4A" || len(rows[0].Guardians) != 0 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].FullName != "Amit Kumar" || len(rows[1].Guardians) != 1 {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}
