// internal/app/features/students/handler.go
package students

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	studentstore "github.com/dalemusser/studentid/internal/app/store/students"
	"github.com/dalemusser/studentid/internal/app/system/csvutil"
	"github.com/dalemusser/studentid/internal/app/system/paging"
	"github.com/dalemusser/studentid/internal/app/system/qrpayload"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the admin student directory.
type Handler struct {
	Students *studentstore.Store
	ErrLog   *apierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(students *studentstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Students: students,
		ErrLog:   apierrors.NewErrorLogger(logger),
		Log:      logger,
	}
}

type listResponse struct {
	Students   []models.Student `json:"students"`
	Total      int64            `json:"total"`
	HasPrev    bool             `json:"hasPrev"`
	HasNext    bool             `json:"hasNext"`
	PrevCursor string           `json:"prevCursor,omitempty"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

func listQuery(r *http.Request) studentstore.ListQuery {
	q := r.URL.Query()
	return studentstore.ListQuery{
		Search:    strings.TrimSpace(q.Get("q")),
		ClassName: strings.TrimSpace(q.Get("class")),
		After:     q.Get("after"),
		Before:    q.Get("before"),
		Limit:     paging.ParseLimit(q.Get("limit")),
	}
}

// ServeList handles GET /students?q=&class=&after=&before=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list students")
	defer cancel()

	page, err := h.Students.List(ctx, listQuery(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "students: list", err, "Could not load students.")
		return
	}
	if page.Students == nil {
		page.Students = []models.Student{}
	}
	resp := listResponse{
		Students: page.Students,
		Total:    page.Total,
		HasPrev:  page.HasPrev,
		HasNext:  page.HasNext,
	}
	if page.HasPrev {
		resp.PrevCursor = page.PrevCursor
	}
	if page.HasNext {
		resp.NextCursor = page.NextCursor
	}
	apierrors.WriteJSON(w, http.StatusOK, resp)
}

// studentView is a student with its guardians.
type studentView struct {
	Student   *models.Student   `json:"student"`
	Guardians []models.Guardian `json:"guardians"`
	QRData    string            `json:"qrData"`
}

// ServeView handles GET /students/{id}. The id is either the document ID
// or the SID… student identifier.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "view student")
	defer cancel()

	id := chi.URLParam(r, "id")
	var (
		st  *models.Student
		err error
	)
	if oid, perr := primitive.ObjectIDFromHex(id); perr == nil {
		st, err = h.Students.GetByID(ctx, oid)
	} else {
		st, err = h.Students.GetByStudentID(ctx, id)
	}
	h.renderStudent(w, r, st, err)
}

// ServeScan handles POST /students/scan with {"data": "<scanned QR text>"}.
func (h *Handler) ServeScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.RenderBadRequest(w, r, "Request body must be JSON.")
		return
	}
	sid, err := qrpayload.Parse(req.Data)
	if err != nil {
		apierrors.RenderError(w, http.StatusUnprocessableEntity, "unrecognized_qr", "This QR code is not a student ID card.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "scan student")
	defer cancel()
	st, err := h.Students.GetByStudentID(ctx, sid)
	h.renderStudent(w, r, st, err)
}

func (h *Handler) renderStudent(w http.ResponseWriter, r *http.Request, st *models.Student, err error) {
	if errors.Is(err, studentstore.ErrNotFound) {
		apierrors.RenderNotFound(w, r, "Student not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "students: load", err, "Could not load the student.")
		return
	}
	guardians, err := h.Students.Guardians(r.Context(), st.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "students: load guardians", err, "Could not load the student's guardians.")
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, studentView{
		Student:   st,
		Guardians: guardians,
		QRData:    qrpayload.Encode(st.StudentID),
	})
}

// roster loads the export rows for the request's filters.
func (h *Handler) roster(w http.ResponseWriter, r *http.Request) ([][]string, bool) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "export roster")
	defer cancel()

	entries, err := h.Students.Roster(ctx, listQuery(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "students: roster", err, "Could not export the roster.")
		return nil, false
	}
	if len(entries) > csvutil.MaxExportRows {
		apierrors.RenderError(w, http.StatusUnprocessableEntity, "too_many_rows",
			fmt.Sprintf("Export is limited to %d students; narrow the search.", csvutil.MaxExportRows))
		return nil, false
	}
	in := make([]csvutil.RosterStudent, len(entries))
	for i, e := range entries {
		in[i] = csvutil.RosterStudent{Student: e.Student, Guardians: e.Guardians}
	}
	return csvutil.RosterRows(in), true
}

func attachment(w http.ResponseWriter, contentType, ext string) {
	name := "roster-" + time.Now().UTC().Format("20060102") + "." + ext
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
}

// ServeExportCSV handles GET /students/export.csv.
func (h *Handler) ServeExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.roster(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := csvutil.WriteRoster(&buf, rows); err != nil {
		h.ErrLog.LogServerError(w, r, "students: write csv", err, "Could not export the roster.")
		return
	}
	attachment(w, "text/csv; charset=utf-8", "csv")
	_, _ = w.Write(buf.Bytes())
}

// ServeExportXLSX handles GET /students/export.xlsx.
func (h *Handler) ServeExportXLSX(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.roster(w, r)
	if !ok {
		return
	}
	b, err := rosterXLSX(rows)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "students: write xlsx", err, "Could not export the roster.")
		return
	}
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx")
	_, _ = w.Write(b)
}
