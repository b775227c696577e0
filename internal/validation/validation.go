// Package validation wraps go-playground/validator with the rules shared by
// the role, menu and user inputs.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
)

var (
	permissionRe = regexp.MustCompile(`^(\*|[a-z][a-z0-9_-]*:(\*|[a-z][a-z0-9_-]*))$`)
	menuPathRe   = regexp.MustCompile(`^/[a-z0-9/-]*$`)
	upperCodeRe  = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// FieldError describes a single failed rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value any    `json:"value,omitempty"`
}

// New returns a validator with the custom tags registered:
//
//	permission  "*" or "resource:action", action may be "*"
//	menupath    a lower case route path starting with "/"
//	code        an upper case identifier such as ADMIN or SYSTEM_MENU
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}

		return name
	})

	mustRegister(v, "permission", permissionRe)
	mustRegister(v, "menupath", menuPathRe)
	mustRegister(v, "code", upperCodeRe)

	return v
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}); err != nil {
		panic("validation: " + err.Error())
	}
}

// IsPermission reports whether p is a well formed permission string.
func IsPermission(p string) bool {
	return permissionRe.MatchString(p)
}

// NormalizePermissions trims, drops empty entries and removes duplicates,
// keeping the first occurrence.
func NormalizePermissions(perms []string) []string {
	out := make([]string, 0, len(perms))

	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}

	return out
}

// Struct validates data and converts failures into an apperror.ErrValidation
// naming every failed field.
func Struct(v *validator.Validate, data any) error {
	fields := Fields(v, data)
	if len(fields) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Field+" failed on "+f.Tag)
	}

	return apperror.Validation("%s", strings.Join(msgs, "; "))
}

// Fields returns the failed rules of data, nil when data is valid.
func Fields(v *validator.Validate, data any) []FieldError {
	err := v.Struct(data)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Tag: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{
			Field: e.Namespace()[strings.Index(e.Namespace(), ".")+1:],
			Tag:   e.Tag(),
			Value: e.Value(),
		})
	}

	return out
}
