// internal/app/system/csvutil/roster.go
package csvutil

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/studentid/internal/domain/models"
)

// RosterHeader names the columns of RosterRows.
var RosterHeader = []string{
	"Student ID",
	"Student Name",
	"Class",
	"Date of Birth",
	"Enrolled",
	"Guardian Name",
	"Relationship",
	"Primary",
	"Phone",
	"Email",
	"Login ID",
}

// RosterStudent is a student with its guardians, as read for export.
type RosterStudent struct {
	Student   models.Student
	Guardians []models.Guardian
}

// RosterRows flattens students to one row per guardian. A student without
// guardians still gets one row with the guardian columns blank.
func RosterRows(students []RosterStudent) [][]string {
	rows := make([][]string, 0, len(students))
	for _, rs := range students {
		st := rs.Student
		head := []string{
			st.StudentID,
			st.FullName,
			st.ClassName,
			st.DateOfBirth,
			formatDate(st.CreatedAt),
		}
		if len(rs.Guardians) == 0 {
			rows = append(rows, append(head, "", "", "", "", "", ""))
			continue
		}
		for _, g := range rs.Guardians {
			row := make([]string, 0, len(RosterHeader))
			row = append(row, head...)
			row = append(row,
				g.FullName,
				g.Relationship,
				strconv.FormatBool(g.IsPrimary),
				g.PhoneNumber,
				g.Email,
				g.LoginID,
			)
			rows = append(rows, row)
		}
	}
	return rows
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

// SafeCell neutralizes values a spreadsheet would treat as a formula.
func SafeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// WriteRoster writes the header and rows as CSV with a UTF-8 BOM so Excel
// opens non-ASCII names correctly.
func WriteRoster(w io.Writer, rows [][]string) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(RosterHeader); err != nil {
		return err
	}
	for _, row := range rows {
		safe := make([]string, len(row))
		for i, v := range row {
			safe[i] = SafeCell(strings.TrimSpace(v))
		}
		if err := cw.Write(safe); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
