package library

import "errors"

var (
	ErrMissingID   = errors.New("book id is required")
	ErrMissingFile = errors.New("local file uri is required")
	ErrNotSaved    = errors.New("download not saved")
)
