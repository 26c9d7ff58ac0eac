package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/learnpath/learnpath-lms/internal/progress"
)

// Handlers only — routes remain in main.go

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine error kinds onto HTTP statuses. Forbidden replies
// carry the blocking course so clients can link to the unmet prerequisite.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]any{"error": "internal error"}

	if e, ok := progress.AsEngineError(err); ok {
		body["error"] = e.Msg
		switch e.Kind {
		case progress.KindNotFound:
			status = http.StatusNotFound
		case progress.KindConflict:
			status = http.StatusConflict
		case progress.KindForbidden:
			status = http.StatusForbidden
			if e.BlockingCourseID != "" {
				body["blocking_course_id"] = e.BlockingCourseID
			}
		case progress.KindValidation:
			status = http.StatusBadRequest
		case progress.KindUnsupported:
			status = http.StatusNotImplemented
		default:
			body["error"] = "internal error"
		}
	}
	if status == http.StatusInternalServerError {
		slog.Error("api: request failed", "error", err)
	}
	writeJSON(w, status, body)
}

// decodeValid decodes the body into dst and runs struct validation.
func decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return progress.Validationf("bad json: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return progress.Validationf("field %s failed %s validation", f.Field(), f.Tag())
		}
		return progress.Validationf("invalid request: %v", err)
	}
	return nil
}
