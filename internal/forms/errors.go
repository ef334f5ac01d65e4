package forms

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/opsboard/internal/backend"
)

var (
	ErrNothingToSave    = errors.New("no changes to save")
	ErrPasswordMismatch = errors.New("passwords don't match")
	ErrUnknownForm      = errors.New("unknown form")
)

// FieldErrors maps a field name to its message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + f[k]
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

// FromAPIError extracts the backend's per-field messages from err.
func FromAPIError(err error) (FieldErrors, bool) {
	apiErr, ok := backend.AsAPIError(err)
	if !ok || len(apiErr.Fields) == 0 {
		return nil, false
	}
	out := make(FieldErrors, len(apiErr.Fields))
	for _, fe := range apiErr.Fields {
		field := fe.Field
		if field == "" {
			field = "_"
		}
		out[field] = fe.Message
	}
	return out, true
}

// FromValidation converts validator errors into field messages keyed by the
// form tag of dst's fields.
func FromValidation(err error, dst any) FieldErrors {
	out := FieldErrors{}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldKey(dst, fe.StructField())] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}

	out["_"] = "The submitted form is invalid."
	return out
}

func fieldKey(dst any, structField string) string {
	t := reflect.TypeOf(dst)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return strings.ToLower(structField)
	}

	f, ok := t.FieldByName(structField)
	if !ok {
		return strings.ToLower(structField)
	}
	tag, _, _ := strings.Cut(f.Tag.Get("form"), ",")
	if tag == "" || tag == "-" {
		return strings.ToLower(structField)
	}
	return tag
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Must be at least " + param + " characters."
	case "max":
		return "Must be at most " + param + " characters."
	case "eqfield":
		return ErrPasswordMismatch.Error()
	case "oneof":
		return "Must be one of: " + param + "."
	case "e164":
		return "Enter a phone number like +15125550100."
	case "numeric", "number":
		return "Must be a number."
	case "gte":
		return "Must be at least " + param + "."
	case "lte":
		return "Must be at most " + param + "."
	case "url", "http_url":
		return "Enter a valid URL."
	case "len":
		return "Must be exactly " + param + " characters."
	default:
		return "Invalid value."
	}
}
