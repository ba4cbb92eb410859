// internal/app/features/idcard/handler.go
package idcard

import (
	"errors"
	"net/http"
	"strconv"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	studentstore "github.com/dalemusser/studentid/internal/app/store/students"
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/app/system/qrpayload"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves virtual ID cards to guardians.
type Handler struct {
	Students   *studentstore.Store
	SchoolName string
	ErrLog     *apierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(students *studentstore.Store, schoolName string, logger *zap.Logger) *Handler {
	return &Handler{
		Students:   students,
		SchoolName: schoolName,
		ErrLog:     apierrors.NewErrorLogger(logger),
		Log:        logger,
	}
}

// card is the front (student, QR) and back (guardians) of one ID card.
type card struct {
	SchoolName string            `json:"schoolName,omitempty"`
	Student    models.Student    `json:"student"`
	Guardians  []models.Guardian `json:"guardians"`
	QRData     string            `json:"qrData"`
	QRImageURL string            `json:"qrImageUrl"`
}

// ServeCards handles GET /idcard: a card for every student the signed-in
// guardian belongs to.
func (h *Handler) ServeCards(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "id cards")
	defer cancel()

	students, err := h.Students.StudentsForGuardian(ctx, accountID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "idcard: students for guardian", err, "Could not load your ID cards.")
		return
	}
	cards := make([]card, 0, len(students))
	for _, st := range students {
		gs, err := h.Students.Guardians(ctx, st.ID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "idcard: guardians", err, "Could not load your ID cards.")
			return
		}
		cards = append(cards, card{
			SchoolName: h.SchoolName,
			Student:    st,
			Guardians:  gs,
			QRData:     qrpayload.Encode(st.StudentID),
			QRImageURL: "/idcard/" + st.ID.Hex() + "/qr.png",
		})
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

// ServeQR handles GET /idcard/{id}/qr.png?size=n. Guardians may only fetch
// codes for their own students; admins may fetch any.
func (h *Handler) ServeQR(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierrors.RenderUnauthorized(w, r)
		return
	}
	studentDocID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.RenderNotFound(w, r, "Student not found.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "id card qr")
	defer cancel()

	if u.Role != models.RoleAdmin {
		accountID, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			apierrors.RenderUnauthorized(w, r)
			return
		}
		g, err := h.Students.GuardianByAccount(ctx, accountID)
		if errors.Is(err, studentstore.ErrNotFound) || (err == nil && g.StudentDocID != studentDocID) {
			// Same answer as a missing student: don't confirm the ID exists.
			apierrors.RenderNotFound(w, r, "Student not found.")
			return
		}
		if err != nil {
			h.ErrLog.LogServerError(w, r, "idcard: guardian lookup", err, "Could not load the QR code.")
			return
		}
	}

	st, err := h.Students.GetByID(ctx, studentDocID)
	if errors.Is(err, studentstore.ErrNotFound) {
		apierrors.RenderNotFound(w, r, "Student not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "idcard: load student", err, "Could not load the QR code.")
		return
	}

	png, err := qrpayload.PNG(st.StudentID, qrSize(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "idcard: render qr", err, "Could not render the QR code.")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(png)
}

func qrSize(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || n < 64 {
		return 256
	}
	if n > 1024 {
		return 1024
	}
	return n
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierrors.RenderUnauthorized(w, r)
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		apierrors.RenderUnauthorized(w, r)
		return primitive.NilObjectID, false
	}
	return id, true
}
