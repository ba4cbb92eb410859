package enrollment_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/dalemusser/studentid/internal/domain/enrollment"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGuardianLoginID(t *testing.T) {
	ids := enrollment.NewGenerator("")

	tests := []struct {
		name      string
		fullName  string
		studentID string
		want      string
	}{
		{"two words", "Jane Doe", "SID123", "doe-SID123@student-id.app"},
		{"single word", "Sunita", "SID1", "sunita-SID1@student-id.app"},
		{"three words uses last", "Mary Ann Smith", "SID9", "smith-SID9@student-id.app"},
		{"extra whitespace", "  Amit   Kumar  ", "SID5", "kumar-SID5@student-id.app"},
		{"uppercase folded", "JOHN O'NEIL", "SID7", "oneil-SID7@student-id.app"},
		{"punctuation stripped", "Anne Smith-Jones", "SID2", "smithjones-SID2@student-id.app"},
		{"blank name", "   ", "SID3", "user-SID3@student-id.app"},
		{"nothing alphanumeric left", "Zoë ßß", "SID4", "user-SID4@student-id.app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids.GuardianLoginID(tt.fullName, tt.studentID)
			if got != tt.want {
				t.Errorf("GuardianLoginID(%q, %q) = %q, want %q", tt.fullName, tt.studentID, got, tt.want)
			}
		})
	}
}

func TestGuardianLoginID_Deterministic(t *testing.T) {
	ids := enrollment.NewGenerator("")
	a := ids.GuardianLoginID("Jane Doe", "SID123")
	b := ids.GuardianLoginID("Jane Doe", "SID123")
	if a != b {
		t.Errorf("same inputs gave %q and %q", a, b)
	}
}

func TestGuardianLoginID_CustomDomain(t *testing.T) {
	ids := enrollment.NewGenerator("school.example")
	got := ids.GuardianLoginID("Jane Doe", "SID123")
	if got != "doe-SID123@school.example" {
		t.Errorf("got %q", got)
	}
	if ids.LoginDomain() != "school.example" {
		t.Errorf("LoginDomain() = %q", ids.LoginDomain())
	}
}

func TestStudentID_Shape(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	ids := enrollment.NewGenerator("").WithClock(fixedClock(at))

	got := ids.StudentID()
	if !regexp.MustCompile(`^SID\d+$`).MatchString(got) {
		t.Fatalf("StudentID() = %q, want SID<digits>", got)
	}
	if want := "SID1772357400000"; got != want {
		t.Errorf("StudentID() = %q, want %q", got, want)
	}
}

func TestLocalID_Unique(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ids := enrollment.NewGenerator("").WithClock(fixedClock(at))

	seen := make(map[string]bool)
	shape := regexp.MustCompile(`^\d+_[0-9a-f]{9}$`)
	for i := 0; i < 1000; i++ {
		id := ids.LocalID()
		if !shape.MatchString(id) {
			t.Fatalf("LocalID() = %q has unexpected shape", id)
		}
		if seen[id] {
			t.Fatalf("LocalID() repeated %q", id)
		}
		seen[id] = true
	}
}
