package service

import (
	"errors"
	"fmt"

	"github.com/KotFed0t/finplan/data/repository"
	"github.com/KotFed0t/finplan/internal/model"
)

var (
	ErrNotFound          = errors.New("error not found")
	ErrForbidden         = errors.New("error access forbidden")
	ErrConflict          = errors.New("error concurrent modification")
	ErrCouponInvalid     = errors.New("error coupon is invalid")
	ErrUnavailable       = errors.New("error feature is not configured")
	ErrQuoteInactive     = errors.New("error security is not traded")
	ErrValidation        = model.ErrValidation
	ErrInvalidTransition = model.ErrInvalidTransition
	ErrInsufficientUnits = fmt.Errorf("%w: not enough units to sell", model.ErrValidation)
	ErrTemplateInactive  = fmt.Errorf("%w: template can not be executed", model.ErrInvalidTransition)
)

// FromRepo translates repository sentinels into service ones. Other errors
// pass through unchanged.
func FromRepo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.Is(err, repository.ErrAlreadyExists), errors.Is(err, repository.ErrBrokenReference):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}
