package validator

import (
	"spacebook/pkg/logger"
	"spacebook/pkg/model"
	"spacebook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type SpaceValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSpaceValidator(log *logger.Logger) *SpaceValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to initialize space validator", "error", err)
	}

	return &SpaceValidator{
		validate: v,
		logger:   log,
	}
}

func (v *SpaceValidator) Validate(space *model.Space) error {
	if err := validation.Struct(v.validate, space); err != nil {
		return err
	}

	if _, err := space.BusinessHours(); err != nil {
		return validation.ValidationErrors{{Field: "close_time", Message: err.Error()}}
	}

	return nil
}
