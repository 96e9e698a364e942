package models

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки портала клиента. Сервисы оборачивают их через fmt.Errorf("%s: %w", op, err),
// транспортный слой сопоставляет их с HTTP-статусами через errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrExpired           = errors.New("entity expired")
	ErrDownloadsDisabled = errors.New("downloads disabled")
	ErrRateLimited       = errors.New("download rate limit exceeded")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUpstreamFetch     = errors.New("upstream fetch failed")
	ErrNotPermitted      = errors.New("action not permitted by settings")
	ErrConflict          = errors.New("concurrent modification")
	ErrAlreadyExists     = errors.New("already exists")
)

// ValidationError собирает все нарушения валидации в одну ошибку.
// errors.Is(err, ErrInvalidInput) для неё истинно.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// invalid возвращает nil для пустого списка.
func invalid(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Errors: []string{fmt.Sprintf(format, args...)}}
}

func collect(errs []string, err error) []string {
	if err == nil {
		return errs
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return append(errs, ve.Errors...)
	}
	return append(errs, err.Error())
}
