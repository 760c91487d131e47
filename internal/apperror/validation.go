package apperror

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation converts a validator error into ErrValidationFailed naming the offending fields.
func Validation(err error) *Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
		}
		return ErrValidationFailed.WithMessage("invalid fields: %s", strings.Join(fields, ", ")).WithCause(err)
	}
	return ErrValidationFailed.WithCause(err)
}
