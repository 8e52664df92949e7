// Package handlers exposes the stage entry points and account operations over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/pipeline"
)

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

// UploadProcessor runs stages 1 and 2 for an upload event.
type UploadProcessor interface {
	HandleUploadEvent(ctx context.Context, payload []byte) pipeline.StageResponse
}

// DashboardService renders and lists dashboards.
type DashboardService interface {
	Handle(ctx context.Context, payload []byte) pipeline.StageResponse
	ListDashboards(ctx context.Context, ownerID string) ([]string, error)
}

// Assistant answers owner questions.
type Assistant interface {
	Ask(ctx context.Context, ownerID, question string) (string, error)
}

// UserService registers and looks up owners.
type UserService interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Create(ctx context.Context, email, password string) (*domain.User, error)
}

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
}

// decodeJSON decodes and validates a request DTO. The returned message is
// suitable for a 400 response.
func decodeJSON(r *http.Request, dst interface{}) (string, bool) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return "Invalid JSON format in request body.", false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return validationMessage(verrs[0]), false
		}
		return "Invalid request body", false
	}
	return "", true
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "Missing '" + field + "' in the request body."
	case "email":
		return "Invalid email address"
	case "min":
		return "'" + field + "' must be at least " + fe.Param() + " characters"
	default:
		return "Invalid '" + field + "'"
	}
}

func writeStage(w http.ResponseWriter, resp pipeline.StageResponse) {
	middleware.WriteRawJSON(w, resp.StatusCode, resp.Body)
}
