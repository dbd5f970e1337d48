// api/util/validation_util.go

package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	hterrors "github.com/hoteltrack/api/errors"
	"github.com/hoteltrack/api/model"
	pdp_model "github.com/hoteltrack/api/pdp/model"
)

type ValidationUtil struct {
	validate *validator.Validate
}

func NewValidationUtil() *ValidationUtil {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("resource", func(fl validator.FieldLevel) bool {
		return model.Resource(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("action", func(fl validator.FieldLevel) bool {
		return model.Action(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("scope", func(fl validator.FieldLevel) bool {
		return model.Scope(fl.Field().String()).Valid()
	})
	return &ValidationUtil{validate: v}
}

// ValidateStruct runs the validate tags of s and flattens the failures into
// one message.
func (v *ValidationUtil) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (v *ValidationUtil) ValidateGrant(grant model.Grant) error {
	if grant.Role == "" {
		return fmt.Errorf("%w: role cannot be empty", hterrors.ErrInvalidGrantData)
	}
	if !grant.Resource.Valid() {
		return fmt.Errorf("%w: unknown resource %q", hterrors.ErrInvalidGrantData, grant.Resource)
	}
	if !grant.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", hterrors.ErrInvalidGrantData, grant.Action)
	}
	if !grant.Scope.Valid() {
		return fmt.Errorf("%w: unknown scope %q", hterrors.ErrInvalidGrantData, grant.Scope)
	}
	return nil
}

func (v *ValidationUtil) ValidateAccessRequest(req pdp_model.AccessRequest) error {
	if err := v.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %w", hterrors.ErrInvalidRequest, err)
	}
	return nil
}
