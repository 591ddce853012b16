// Package validation holds the request validator and the custom rules the
// handlers share.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared instance with custom rules registered. Field
// names in errors use the json tag.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("subdomain", ValidateSubdomain)
		validate = v
	})
	return validate
}

// FieldError is one failed rule, shaped for the error response details.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Struct validates s and returns nil or a validator.ValidationErrors.
func Struct(s any) error {
	return Validator().Struct(s)
}

// Details flattens a validation error for respond.Error.
func Details(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// Message summarizes a validation error in one line.
func Message(err error) string {
	details := Details(err)
	if len(details) == 0 {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	parts := make([]string, 0, len(details))
	for _, d := range details {
		parts = append(parts, d.Field+" failed "+d.Rule)
	}
	return strings.Join(parts, "; ")
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

var reservedSubdomains = map[string]bool{
	"www":    true,
	"api":    true,
	"app":    true,
	"admin":  true,
	"mail":   true,
	"static": true,
}

// SubdomainProblem returns why s cannot be used as a subdomain, or "" when it
// is well formed and not reserved.
func SubdomainProblem(s string) string {
	switch {
	case len(s) < 3:
		return "subdomain must be at least 3 characters"
	case len(s) > 63:
		return "subdomain must be at most 63 characters"
	case !subdomainPattern.MatchString(s):
		return "subdomain may contain only lowercase letters, digits and inner hyphens"
	case reservedSubdomains[s]:
		return "subdomain is reserved"
	}
	return ""
}

// ValidateSubdomain is the "subdomain" validator rule.
func ValidateSubdomain(fl validator.FieldLevel) bool {
	return SubdomainProblem(fl.Field().String()) == ""
}
