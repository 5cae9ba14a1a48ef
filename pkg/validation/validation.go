// Package validation holds the struct validator shared by usecases and the
// gin binding engine, including the card specific tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// TagName is the struct tag read by both gin binding and Struct.
const TagName = "binding"

var (
	intlPhonePattern          = regexp.MustCompile(`^\+\d{1,4}\d{6,14}$`)
	formattedIntlPhonePattern = regexp.MustCompile(`^\+\d{1,4}\s\d{2}-\d{3}-\d{4}$`)
	cardEmailPattern          = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	socialURLPattern          = regexp.MustCompile(`^(https?:\/\/)?[\w.-]+(\.[\w\.-]+)+[\w\-\._~:/?#[\]@!\$&'\(\)\*\+,;=.]+$`)
)

var messages = map[string]string{
	"required":  "is required",
	"intlphone": "must be an international phone number",
	"cardemail": "must be a valid email address",
	"email":     "must be a valid email address",
	"socialurl": "must be a valid URL",
	"numeric":   "must be numeric",
}

var (
	once     sync.Once
	validate *validator.Validate
)

// IsIntlPhone reports whether s is "+<country><number>" or the formatted
// "+<country> NN-NNN-NNNN" variant.
func IsIntlPhone(s string) bool {
	return intlPhonePattern.MatchString(s) || formattedIntlPhonePattern.MatchString(s)
}

// IsCardEmail applies the loose address check used for card contact emails.
func IsCardEmail(s string) bool {
	return cardEmailPattern.MatchString(s)
}

// IsSocialURL accepts bare domains and http(s) URLs.
func IsSocialURL(s string) bool {
	return socialURLPattern.MatchString(s)
}

// Register adds the custom tags and json field naming to v.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)
	rules := map[string]func(string) bool{
		"intlphone": IsIntlPhone,
		"cardemail": IsCardEmail,
		"socialurl": IsSocialURL,
	}
	for tag, fn := range rules {
		fn := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		}); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// RegisterGin installs the custom tags on gin's default binding engine.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return Register(v)
}

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.SetTagName(TagName)
		if err := Register(v); err != nil {
			panic(err)
		}
		validate = v
	})
	return validate
}

// Struct validates s against its binding tags.
func Struct(s interface{}) error {
	return get().Struct(s)
}

// Var validates a single value against tag.
func Var(field interface{}, tag string) error {
	return get().Var(field, tag)
}

// Message renders validator errors as "field: reason" pairs; other errors
// are returned as their text.
func Message(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fe.Field()+" "+reason(fe))
	}
	return strings.Join(parts, "; ")
}

func reason(fe validator.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "min", "len", "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must satisfy %s=%s characters", fe.Tag(), fe.Param())
		}
	}
	return "failed " + fe.Tag()
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
