// Package validate wraps go-playground/validator with the portal's field formats and
// turns failures into per-field messages.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	gstinPattern     = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][A-Z0-9]Z[A-Z0-9]$`)
	panPattern       = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	ifscPattern      = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	pincodePattern   = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	mobilePattern    = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	intlPhonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{9,14}$`)
	digitsPattern    = regexp.MustCompile(`^[0-9]+$`)
)

// Custom tags registered on the shared engine.
var patterns = map[string]*regexp.Regexp{
	"gstin":     gstinPattern,
	"pan":       panPattern,
	"ifsc":      ifscPattern,
	"pincode":   pincodePattern,
	"mobile":    mobilePattern,
	"intlphone": intlPhonePattern,
	"digits":    digitsPattern,
}

// Errors maps a wire field name to the message shown next to it.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var (
	engineOnce sync.Once
	engine     *validator.Validate
)

// Engine returns the shared validator. Field names are reported by their json tag.
func Engine() *validator.Validate {
	engineOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		for tag, re := range patterns {
			re := re
			if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return re.MatchString(fl.Field().String())
			}); err != nil {
				panic(err)
			}
		}
		engine = v
	})
	return engine
}

// Struct validates v. Failures come back as Errors holding the first failing rule per field,
// worded by messages["<field>.<tag>"] or a generic fallback.
func Struct(v any, messages map[string]string) error {
	err := Engine().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(Errors, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		out[field] = msg
	}
	return out
}
