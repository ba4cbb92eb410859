// Package qrpayload encodes and decodes the data carried by student ID card
// QR codes.
package qrpayload

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrUnrecognized is returned when scanned data names no student.
var ErrUnrecognized = errors.New("qr data does not identify a student")

var bareID = regexp.MustCompile(`^SID\d+$`)

type payload struct {
	StudentID string `json:"studentId,omitempty"`

	// Older cards.
	Type               string `json:"type,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
}

// Encode returns the QR text for a student ID.
func Encode(studentID string) string {
	b, _ := json.Marshal(payload{StudentID: studentID})
	return string(b)
}

// Parse extracts the student ID from scanned QR text. It accepts the
// current {"studentId": ...} shape, the older
// {"type":"student_id","registrationNumber": ...} shape, and a bare ID.
func Parse(data string) (string, error) {
	data = strings.TrimSpace(data)
	if bareID.MatchString(data) {
		return data, nil
	}
	if !strings.HasPrefix(data, "{") {
		return "", ErrUnrecognized
	}

	var p payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return "", ErrUnrecognized
	}
	if id := strings.TrimSpace(p.StudentID); id != "" {
		return id, nil
	}
	if p.Type == "student_id" {
		if id := strings.TrimSpace(p.RegistrationNumber); id != "" {
			return id, nil
		}
	}
	return "", ErrUnrecognized
}

// PNG renders the QR code for studentID as a square PNG of size pixels.
func PNG(studentID string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(Encode(studentID), qrcode.Medium, size)
}
