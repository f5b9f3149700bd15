// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/research-summarizer/pkg/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	if err != nil {
		panic(fmt.Sprintf("api: registering notblank validation: %v", err))
	}
	return v
}

// ValidateSearch checks a search request before submission. The returned
// error wraps ErrValidation and reads like the form hint the user sees.
func ValidateSearch(req types.SearchRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Query":
		if fe.Tag() == "max" {
			return fmt.Errorf("%w: search query is too long", ErrValidation)
		}
		return fmt.Errorf("%w: please enter a search query", ErrValidation)
	case "NumResults":
		return fmt.Errorf("%w: number of papers must be between %d and %d",
			ErrValidation, types.MinNumResults, types.MaxNumResults)
	case "Provider":
		return fmt.Errorf("%w: provider must be one of %s",
			ErrValidation, strings.Join(types.Providers, ", "))
	default:
		return fmt.Errorf("%w: %s failed %s", ErrValidation, fe.Field(), fe.Tag())
	}
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: query id is required", ErrValidation)
	}
	return nil
}
