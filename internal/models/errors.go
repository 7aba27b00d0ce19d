package models

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrEmptyNetwork  = errors.New("the model has not been initialized or is empty")
	ErrInvalidImage  = errors.New("invalid image")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// NotFoundError reports a required file (weights, network config, labels)
// that is absent on disk.
type NotFoundError struct {
	What string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("the %s file has not been found: %s", e.What, e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}
