package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	apierrors "custos/internal/errors"
)

// multipartOverhead is the room left for the multipart envelope around the file
const multipartOverhead = 1 << 20

// uploadField is the multipart field that carries the workbook
const uploadField = "file"

// readUpload extracts the workbook from a multipart request. The body must
// already be capped with http.MaxBytesReader.
func readUpload(r *http.Request, maxBytes int64) (string, []byte, error) {
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, apierrors.PayloadTooLargeError(maxBytes)
		}
		return "", nil, apierrors.InvalidRequestWithError(err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return "", nil, apierrors.ErrValidation(uploadField, "a workbook file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return "", nil, apierrors.InvalidRequestWithError(err)
	}
	if int64(len(data)) > maxBytes {
		return "", nil, apierrors.PayloadTooLargeError(maxBytes)
	}
	return filepath.Base(header.Filename), data, nil
}
