package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrForbidden indicates the caller is authenticated but not a party to the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidPayload indicates malformed or incomplete input.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNotFound indicates the room, message, case or notification does not exist.
	ErrNotFound = errors.New("not found")
)

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
