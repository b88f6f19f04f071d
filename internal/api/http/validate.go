package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
)

var (
	nikRegex     = regexp.MustCompile(`^[0-9]{16}$`)
	idPhoneRegex = regexp.MustCompile(`^(\+62|62|0)[0-9]{9,13}$`)
)

// Validator checks request DTOs and reports failures per JSON field.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator(catalog config.TrainingCatalog) *Validator {
	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")

	v := validator.New()
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("nik", func(fl validator.FieldLevel) bool {
		return nikRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("idphone", func(fl validator.FieldLevel) bool {
		return idPhoneRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("program", func(fl validator.FieldLevel) bool {
		return catalog.Has(fl.Field().String())
	})

	custom := map[string]string{
		"nik":     "NIK must be exactly 16 digits",
		"idphone": "Please provide a valid Indonesian phone number",
		"program": "Invalid training program",
	}
	for tag, text := range custom {
		registerTranslation(v, trans, tag, text)
	}
	return &Validator{validate: v, translator: trans}
}

func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns a *domain.ValidationError naming each bad field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return &domain.ValidationError{Message: "Validation failed", Fields: fields}
}

// decode reads a JSON body into dst and validates it.
func (v *Validator) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("Invalid request body")
	}
	return v.Struct(dst)
}
