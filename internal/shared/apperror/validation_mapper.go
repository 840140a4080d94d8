package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// formatFieldName: entry_date -> Entry Date
func formatFieldName(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	caser := cases.Title(language.English)
	return caser.String(s)
}

// MapValidationError turns the first binding failure into a 400 AppError.
func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		e := errs[0]

		// e.Field() already carries the json name, see Init()
		humanReadableField := formatFieldName(e.Field())

		switch e.Tag() {
		case "required":
			return RequiredField(humanReadableField).WithDetails(map[string]any{"field": e.Field()})
		case "oneof":
			return New(
				CodeValidationErr,
				fmt.Sprintf("%s must be one of [%s]", humanReadableField, e.Param()),
				http.StatusBadRequest,
			).WithDetails(map[string]any{"field": e.Field()})
		case "hours":
			return New(
				CodeValidationErr,
				fmt.Sprintf("%s must be a non-negative amount with at most %d decimals", humanReadableField, HoursPlaces),
				http.StatusBadRequest,
			).WithDetails(map[string]any{"field": e.Field()})
		default:
			return InvalidField(humanReadableField).WithDetails(map[string]any{"field": e.Field()})
		}
	}

	return New(
		CodeValidationErr,
		"Invalid input",
		http.StatusBadRequest,
	)
}
