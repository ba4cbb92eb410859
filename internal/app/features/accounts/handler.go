// internal/app/features/accounts/handler.go
package accounts

// Terminology: User Identifiers
//   - AccountID / accountID: the MongoDB ObjectID (_id) of an account
//   - LoginID / loginID / login_id: the string typed at sign-in

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	"github.com/dalemusser/studentid/internal/app/system/auditlog"
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves account administration for admins.
type Handler struct {
	Accounts    *accountstore.Store
	AuditLog    *auditlog.Logger
	ErrLog      *apierrors.ErrorLogger
	LoginDomain string // appended to login IDs typed without "@"
	Log         *zap.Logger
}

func NewHandler(accounts *accountstore.Store, audit *auditlog.Logger, loginDomain string, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:    accounts,
		AuditLog:    audit,
		ErrLog:      apierrors.NewErrorLogger(logger),
		LoginDomain: loginDomain,
		Log:         logger,
	}
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors maps each failing field to a message.
func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = formatFieldError(fe)
	}
	return out
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

func renderValidation(w http.ResponseWriter, err error) {
	errs := fieldErrors(err)
	msg := "Please correct the highlighted fields."
	if len(errs) == 1 {
		for _, m := range errs {
			msg = m
		}
	}
	apierrors.RenderErrorDetails(w, http.StatusUnprocessableEntity, "validation_failed", msg, errs)
}

// loginID trims s and appends the login domain when s has no "@".
func (h *Handler) loginID(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && !strings.Contains(s, "@") && h.LoginDomain != "" {
		s += "@" + h.LoginDomain
	}
	return s
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		apierrors.RenderBadRequest(w, r, "Malformed JSON body: "+err.Error())
		return false
	}
	return true
}

// actor returns the signed-in admin's account ID.
func actor(r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
