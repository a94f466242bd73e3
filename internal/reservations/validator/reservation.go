package validator

import (
	"spacebook/pkg/logger"
	"spacebook/pkg/model"
	"spacebook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// ReservationValidator checks field shapes only. Interval validity is decided by the
// coordinator so that an invalid interval is reported as such, not as a field error.
type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to initialize reservation validator", "error", err)
	}

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

func (v *ReservationValidator) ValidateRequest(req *model.ReservationRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *ReservationValidator) ValidateUpdate(update *model.ReservationUpdate) error {
	return validation.Struct(v.validate, update)
}
