package usecase

import (
	"fmt"
	"net/mail"
	"strings"
)

const maxNameLength = 200

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationFailed(errs []ValidationError) error {
	msg := "validation failed: "
	for i, e := range errs {
		if i > 0 {
			msg += ", "
		}
		msg += e.Field + " (" + e.Message + ")"
	}
	return &DomainError{Code: CodeValidation, Message: msg}
}

func validateName(field, name string) []ValidationError {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return []ValidationError{{field, "is required"}}
	case len(name) > maxNameLength:
		return []ValidationError{{field, fmt.Sprintf("must not exceed %d characters", maxNameLength)}}
	}
	return nil
}

func ValidateCreatePipelineInput(input CreatePipelineInput) []ValidationError {
	errs := validateName("name", input.Name)

	if len(input.Stages) == 0 {
		errs = append(errs, ValidationError{"stages", "at least one stage is required"})
	}

	seen := make(map[string]bool, len(input.Stages))
	leads := 0
	for i, s := range input.Stages {
		field := fmt.Sprintf("stages[%d].name", i)
		if nameErrs := validateName(field, s.Name); len(nameErrs) > 0 {
			errs = append(errs, nameErrs...)
			continue
		}
		name := strings.TrimSpace(s.Name)
		if seen[name] {
			errs = append(errs, ValidationError{field, "is duplicated"})
		}
		seen[name] = true

		ids := make(map[string]bool, len(s.Leads))
		for j, l := range s.Leads {
			if l.ID == "" {
				errs = append(errs, ValidationError{fmt.Sprintf("stages[%d].leads[%d].id", i, j), "is required"})
				continue
			}
			if ids[l.ID] {
				errs = append(errs, ValidationError{fmt.Sprintf("stages[%d].leads[%d].id", i, j), "is duplicated"})
			}
			ids[l.ID] = true
		}
		leads += len(s.Leads)
	}

	if leads == 0 {
		errs = append(errs, ValidationError{"stages", "at least one lead is required"})
	}

	return errs
}

func ValidateCreateLeadInput(input CreateLeadInput) []ValidationError {
	errs := validateName("name", input.Name)

	if strings.TrimSpace(input.Email) == "" {
		errs = append(errs, ValidationError{"email", "is required"})
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		errs = append(errs, ValidationError{"email", "is invalid"})
	}

	return errs
}
