package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kalambet/jobportal/internal/apperr"
)

// validate is shared; validator.Validate caches parsed tags and is safe for
// concurrent use.
var validate = validator.New()

// Rule binds one field to a validator tag such as "required,email".
type Rule struct {
	Field string
	Tag   string
	Label string // human name used in messages; defaults to Field
}

// Check is a cross-field validation run after the per-field rules pass.
type Check func(State) *apperr.Error

// Rules builds a Validator that applies rules in order and then checks. The
// first failure wins so messages are deterministic.
func Rules(rules []Rule, checks ...Check) Validator {
	tags := make(map[string]any, len(rules))
	for _, r := range rules {
		tags[r.Field] = r.Tag
	}
	return func(s State) (verr *apperr.Error) {
		// Some tags panic on value types they do not support (oneof on floats).
		defer func() {
			if r := recover(); r != nil {
				verr = apperr.Validation(fmt.Sprintf("invalid field value: %v", r))
			}
		}()
		data := make(map[string]any, len(s))
		for k, v := range s {
			data[k] = v
		}
		errs := validate.ValidateMap(data, tags)
		for _, r := range rules {
			err, failed := errs[r.Field]
			if !failed {
				continue
			}
			return apperr.Validation(message(r, err)).WithField(r.Field)
		}
		for _, c := range checks {
			if e := c(s); e != nil {
				return e
			}
		}
		return nil
	}
}

func message(r Rule, err any) string {
	label := r.Label
	if label == "" {
		label = r.Field
	}
	var ves validator.ValidationErrors
	if e, ok := err.(error); ok && errors.As(e, &ves) && len(ves) > 0 {
		fe := ves[0]
		switch fe.Tag() {
		case "required":
			return label + " is required"
		case "email":
			return label + " must be a valid email address"
		case "oneof":
			return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
		case "numeric", "number":
			return label + " must be a number"
		case "len":
			return fmt.Sprintf("%s must be %s characters", label, fe.Param())
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s failed the %q rule", label, fe.Tag())
	}
	return label + " is invalid"
}

// FieldsMatch requires two fields to hold the same value.
func FieldsMatch(field, other, msg string) Check {
	return func(s State) *apperr.Error {
		if fmt.Sprint(s[field]) != fmt.Sprint(s[other]) {
			return apperr.Validation(msg).WithField(other)
		}
		return nil
	}
}

// RequiredWhen requires fields when the state's cond field equals value.
func RequiredWhen(cond, value string, fields ...string) Check {
	return func(s State) *apperr.Error {
		if s.String(cond) != value {
			return nil
		}
		for _, f := range fields {
			if blank(s[f]) {
				return apperr.Validation(f + " is required").WithField(f)
			}
		}
		return nil
	}
}

// Present requires a non-empty value without going through a validator tag,
// for fields that hold structured values such as attachments.
func Present(field, msg string) Check {
	return func(s State) *apperr.Error {
		if blank(s[field]) {
			return apperr.Validation(msg).WithField(field)
		}
		return nil
	}
}

func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case map[string]any:
		return len(x) == 0
	}
	return false
}
