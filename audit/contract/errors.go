package contract

import "errors"

var (
	ErrDownload        = errors.New("video download failed")
	ErrUpload          = errors.New("object upload failed")
	ErrAnnotate        = errors.New("video annotation failed")
	ErrRetrieval       = errors.New("rule retrieval failed")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
)
