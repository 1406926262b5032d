package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "custos/internal/errors"
)

// MonthSelection is the validated form of the months a request asks for
type MonthSelection struct {
	Months []string `json:"months" validate:"max=120,dive,required,max=100"`
}

// ExportQuery selects a CSV export
type ExportQuery struct {
	Kind string `json:"kind" validate:"required,oneof=series margins"`
}

// ChartQuery tunes the rendered chart page
type ChartQuery struct {
	Theme string `json:"theme" validate:"omitempty,oneof=chalk essos infographic macarons purple-passion roma romantic shine vintage walden westeros wonderland white"`
}

// Validator validates request parameters using struct tags
type Validator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewValidator creates a validator that reports JSON field names
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validator: v,
		logger:    logger.With(slog.String("component", "validator")),
	}
}

// ValidateStruct validates a struct and returns an *apierrors.APIError listing every failure
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ParseMonths reads the repeated months query parameter (?months=a&months=b).
// Each value is one sheet name taken verbatim, since sheet names may contain
// commas. Order is kept and blank values are dropped. A nil result means the
// client did not choose and the default selection applies.
func (v *Validator) ParseMonths(r *http.Request) ([]string, error) {
	raw, present := r.URL.Query()["months"]
	if !present {
		return nil, nil
	}

	months := make([]string, 0, len(raw))
	for _, value := range raw {
		if strings.TrimSpace(value) != "" {
			months = append(months, value)
		}
	}

	sel := MonthSelection{Months: months}
	if err := v.ValidateStruct(sel); err != nil {
		v.logger.DebugContext(r.Context(), "invalid month selection",
			slog.Int("count", len(months)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return sel.Months, nil
}

// ParseTheme reads the theme query parameter, falling back to def
func (v *Validator) ParseTheme(r *http.Request, def string) (string, error) {
	q := ChartQuery{Theme: strings.TrimSpace(r.URL.Query().Get("theme"))}
	if err := v.ValidateStruct(q); err != nil {
		return "", err
	}
	if q.Theme == "" {
		return def, nil
	}
	return q.Theme, nil
}

// ParseExportKind validates the kind path parameter of a CSV export
func (v *Validator) ParseExportKind(kind string) (string, error) {
	q := ExportQuery{Kind: kind}
	if err := v.ValidateStruct(q); err != nil {
		return "", err
	}
	return q.Kind, nil
}

// ContentTypeValidator rejects bodies whose content type is not listed
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				errorHandler.HandleError(w, r, apierrors.ErrValidation("Content-Type", "Content-Type header is required"))
				return
			}

			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				apierrors.CodeInvalidRequest,
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		if strings.Contains(err.Namespace(), "[") {
			return fmt.Sprintf("%s must not contain empty names", strings.SplitN(field, "[", 2)[0])
		}
		return fmt.Sprintf("%s is required", field)
	case "max":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s entries", field, param)
		}
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
