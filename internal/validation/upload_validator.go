package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"custos/internal/dataprocessing"
	apierrors "custos/internal/errors"
)

// zipMIME is the container every xlsx file sniffs down to
const zipMIME = "application/zip"

// UploadValidator checks a spreadsheet before it reaches the loader
type UploadValidator struct {
	maxBytes   int64
	extensions []string
	logger     *slog.Logger
}

// NewUploadValidator creates a validator; a non-positive maxBytes disables the size check
func NewUploadValidator(maxBytes int64, extensions []string, logger *slog.Logger) *UploadValidator {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return &UploadValidator{
		maxBytes:   maxBytes,
		extensions: exts,
		logger:     logger.With(slog.String("component", "upload_validator")),
	}
}

// MaxBytes returns the configured upload limit
func (v *UploadValidator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate checks name, size and content of an upload. The name may be empty,
// in which case only the content is checked.
func (v *UploadValidator) Validate(name string, data []byte) error {
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		v.logger.Warn("upload too large",
			slog.String("file", name),
			slog.Int("size", len(data)),
			slog.Int64("max_bytes", v.maxBytes))
		return apierrors.PayloadTooLargeError(v.maxBytes)
	}

	if name != "" {
		if err := v.checkExtension(name); err != nil {
			return err
		}
	}

	if len(data) == 0 {
		return &dataprocessing.MalformedFileError{Reason: "empty file"}
	}

	detected := mimetype.Detect(data)
	if !isZip(detected) {
		v.logger.Warn("upload is not a zip container",
			slog.String("file", name),
			slog.String("mime", detected.String()))
		return &dataprocessing.MalformedFileError{
			Reason: fmt.Sprintf("expected an xlsx workbook, got %s", detected.String()),
		}
	}

	v.logger.Debug("upload validated",
		slog.String("file", name),
		slog.Int("size", len(data)),
		slog.String("mime", detected.String()))
	return nil
}

// ReadFile validates a local workbook path and returns its content
func (v *UploadValidator) ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return nil, fmt.Errorf("%s is a temporary Excel lock file", path)
	}
	if v.maxBytes > 0 && info.Size() > v.maxBytes {
		return nil, apierrors.PayloadTooLargeError(v.maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := v.Validate(filepath.Base(path), data); err != nil {
		return nil, err
	}
	return data, nil
}

func (v *UploadValidator) checkExtension(name string) error {
	if len(v.extensions) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range v.extensions {
		if ext == allowed {
			return nil
		}
	}
	v.logger.Warn("upload has unsupported extension",
		slog.String("file", name),
		slog.String("extension", ext))
	return &dataprocessing.MalformedFileError{
		Reason: fmt.Sprintf("unsupported file extension %q (allowed: %s)", ext, strings.Join(v.extensions, ", ")),
	}
}

func isZip(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(zipMIME) {
			return true
		}
	}
	return false
}
