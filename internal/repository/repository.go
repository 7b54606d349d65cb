package repository

import "errors"

var ErrNotFound = errors.New("repository: not found")

type scanner interface {
	Scan(dest ...interface{}) error
}
