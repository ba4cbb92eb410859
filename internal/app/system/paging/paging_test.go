package paging

import (
	"testing"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", DefaultPageSize},
		{"abc", DefaultPageSize},
		{"0", DefaultPageSize},
		{"-3", DefaultPageSize},
		{"25", 25},
		{"100000", MaxPageSize},
	}
	for _, tt := range tests {
		if got := ParseLimit(tt.in); got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTrimPage(t *testing.T) {
	const size = 3
	tests := []struct {
		name       string
		rows       []int
		before     string
		after      string
		wantRows   []int
		wantResult Result
	}{
		{"first page, no extra", []int{1, 2}, "", "", []int{1, 2}, Result{}},
		{"first page, extra", []int{1, 2, 3, 4}, "", "", []int{1, 2, 3}, Result{HasNext: true}},
		{"forward page, extra", []int{4, 5, 6, 7}, "", "c", []int{4, 5, 6}, Result{HasPrev: true, HasNext: true}},
		{"forward page, last", []int{4, 5}, "", "c", []int{4, 5}, Result{HasPrev: true}},
		{"backward page, extra", []int{3, 2, 1, 0}, "c", "", []int{3, 2, 1}, Result{HasPrev: true, HasNext: true}},
		{"backward page, first", []int{2, 1}, "c", "", []int{2, 1}, Result{HasNext: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := append([]int(nil), tt.rows...)
			got := TrimPage(&rows, tt.before, tt.after, size)
			if got != tt.wantResult {
				t.Errorf("result = %+v, want %+v", got, tt.wantResult)
			}
			if len(rows) != len(tt.wantRows) {
				t.Fatalf("rows = %v, want %v", rows, tt.wantRows)
			}
			for i := range rows {
				if rows[i] != tt.wantRows[i] {
					t.Errorf("rows = %v, want %v", rows, tt.wantRows)
					break
				}
			}
		})
	}
}

func TestConfigureKeyset(t *testing.T) {
	valid := wafflemongo.EncodeCursor("kumar", primitive.NewObjectID())

	tests := []struct {
		name       string
		before     string
		after      string
		wantDir    Direction
		wantOrder  int
		wantCursor bool
	}{
		{"first page", "", "", Forward, 1, false},
		{"after", "", valid, Forward, 1, true},
		{"before", valid, "", Backward, -1, true},
		{"before wins", valid, "ignored", Backward, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfigureKeyset(tt.before, tt.after)
			if got.Direction != tt.wantDir || got.SortOrder != tt.wantOrder {
				t.Errorf("got dir=%v order=%d", got.Direction, got.SortOrder)
			}
			if (got.Cursor != nil) != tt.wantCursor {
				t.Errorf("cursor present = %v, want %v", got.Cursor != nil, tt.wantCursor)
			}
			if (got.KeysetWindow("full_name_ci") != nil) != tt.wantCursor {
				t.Error("KeysetWindow should be set exactly when a cursor is")
			}
		})
	}
}

func TestReverse(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	Reverse(rows)
	for i, want := range []int{4, 3, 2, 1} {
		if rows[i] != want {
			t.Fatalf("Reverse = %v", rows)
		}
	}
}

func TestBuildCursors(t *testing.T) {
	type item struct {
		Key string
		ID  primitive.ObjectID
	}
	key := func(i item) string { return i.Key }
	id := func(i item) primitive.ObjectID { return i.ID }

	if p, n := BuildCursors([]item{}, key, id); p != "" || n != "" {
		t.Errorf("empty rows: (%q, %q)", p, n)
	}

	a, b := item{"amit", primitive.NewObjectID()}, item{"ravi", primitive.NewObjectID()}
	prev, next := BuildCursors([]item{a, b}, key, id)
	c, ok := wafflemongo.DecodeCursor(prev)
	if !ok || c.CI != "amit" || c.ID != a.ID {
		t.Errorf("prev cursor = %+v, %v", c, ok)
	}
	c, ok = wafflemongo.DecodeCursor(next)
	if !ok || c.CI != "ravi" || c.ID != b.ID {
		t.Errorf("next cursor = %+v, %v", c, ok)
	}
}
