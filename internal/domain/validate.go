package domain

import (
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks a change struct against its validate tags
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(map[string]string)
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			fields[field] = "field is required"
		case "email":
			fields[field] = "invalid email format"
		case "max":
			fields[field] = "must be at most " + e.Param() + " characters"
		case "unique":
			fields[field] = "values must be unique"
		case "oneof":
			fields[field] = "must be one of " + e.Param()
		default:
			fields[field] = "validation failed on " + e.Tag()
		}
	}
	return &ValidationError{Fields: fields}
}

// AddTag returns tags with tag appended. Duplicates (case-sensitive) and
// over-long tags are rejected.
func AddTag(tags []string, tag string) ([]string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, ErrEmptyTag
	}
	if utf8.RuneCountInString(tag) > MaxTagLength {
		return nil, ErrTagTooLong
	}
	for _, t := range tags {
		if t == tag {
			return nil, ErrDuplicateTag
		}
	}
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, tag), nil
}

// RemoveTag returns tags without tag, preserving order
func RemoveTag(tags []string, tag string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}
