package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/render"

	"custos/internal/dataprocessing"
	"custos/internal/infrastructure"
)

// Common error types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeServiceDown      = "/errors/service-unavailable"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
)

// Workbook error types
const (
	TypeSessionNotFound   = "/errors/session/not-found"
	TypeMalformedFile     = "/errors/workbook/malformed"
	TypeMissingColumn     = "/errors/workbook/missing-column"
	TypeInvalidColumnType = "/errors/workbook/invalid-column-type"
	TypeUnknownSheet      = "/errors/workbook/unknown-sheet"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", traceID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
		if h.includeStack {
			problem.WithExtension("stack", getStackTrace())
		}
	}
	infrastructure.WithError(h.logger, err).Log(r.Context(), level, "request failed",
		slog.Int("status", problem.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		).WithExtension("error_code", CodeRequestTimeout)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return h.apiErrorToProblem(PayloadTooLargeError(maxBytes.Limit), r)
	}

	var (
		malformed  *dataprocessing.MalformedFileError
		missing    *dataprocessing.MissingColumnError
		columnType *dataprocessing.ColumnTypeError
		unknown    *dataprocessing.UnknownSheetError
	)
	switch {
	case errors.As(err, &malformed):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeMalformedFile,
			"Malformed Spreadsheet",
			"The uploaded file is not a readable .xlsx workbook",
			r.URL.Path,
		).WithExtension("error_code", CodeMalformedFile).
			WithExtension("details", map[string]string{"reason": malformed.Reason})

	case errors.As(err, &missing):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeMissingColumn,
			"Missing Column",
			missing.Error(),
			r.URL.Path,
		).WithExtension("error_code", CodeMissingColumn).
			WithExtension("details", map[string]string{"sheet": missing.Sheet, "column": missing.Column})

	case errors.As(err, &columnType):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeInvalidColumnType,
			"Invalid Column Type",
			columnType.Error(),
			r.URL.Path,
		).WithExtension("error_code", CodeInvalidColumnType).
			WithExtension("details", map[string]interface{}{
				"sheet":  columnType.Sheet,
				"column": columnType.Column,
				"row":    columnType.Row,
				"value":  columnType.Value,
			})

	case errors.As(err, &unknown):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeUnknownSheet,
			"Unknown Sheet",
			unknown.Error(),
			r.URL.Path,
		).WithExtension("error_code", CodeUnknownSheet).
			WithExtension("details", map[string]string{"sheet": unknown.Name})
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	).WithExtension("error_code", CodeInternalServer)
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case CodeValidationFailed, CodeInvalidRequest:
		problemType = TypeValidation
	case CodeNotFound:
		problemType = TypeNotFound
	case CodeSessionNotFound:
		problemType = TypeSessionNotFound
	case CodePayloadTooLarge:
		problemType = TypePayloadTooLarge
	case CodeRateLimitExceeded:
		problemType = TypeRateLimit
	case CodeServiceUnavailable:
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	traceID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	apiErr := ErrPanic(recovered)
	problem := NewProblemDetails(
		apiErr.StatusCode,
		TypeInternal,
		http.StatusText(apiErr.StatusCode),
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", traceID).
		WithExtension("error_code", apiErr.ErrorCode)

	// the panic value stays out of responses unless stacks are exposed
	if h.includeStack {
		problem.WithExtension("details", apiErr.Details)
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context())).
		WithExtension("error_code", CodeNotFound)

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	_ = render.Render(w, r, problem)
}

// JSON writes v with the given status through chi/render
func (h *ErrorHandler) JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
