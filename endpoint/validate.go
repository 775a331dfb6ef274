package endpoint

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("endpoint: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	if err := validate.RegisterValidation("mxid", matrixID); err != nil {
		panic(err)
	}

	// Report fields by their wire name; fields kept out of JSON keep the Go name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})
}

// matrixID implements the "mxid" tag: a sigil from the tag parameter, a
// non-empty localpart, a colon and a non-empty server name, as in
// "#lobby:example.org" for `validate:"mxid=#"`. Several sigils may be
// allowed at once, e.g. `validate:"mxid=!#"`.
func matrixID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" || !strings.ContainsRune(fl.Param(), rune(id[0])) {
		return false
	}

	localpart, server, ok := strings.Cut(id[1:], ":")

	return ok && localpart != "" && server != ""
}

// Validate checks a typed request against its `validate` struct tags.
// Failures are returned as FieldErrors keyed by JSON field name.
func Validate(val any) error {
	err := validate.Struct(val)
	if err == nil {
		return nil
	}

	verrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(FieldErrors, 0, len(verrors))
	for _, verror := range verrors {
		fields = append(fields, FieldError{
			Field: verror.Field(),
			Err:   message(verror),
		})
	}

	return fields
}

// FieldError is a validation failure on a single request field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors is a collection of field errors. Homeservers report them as
// M_BAD_JSON; the client reports them as a request construction failure.
type FieldErrors []FieldError

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}

	return strings.Join(parts, "; ")
}

// Fields returns the failing fields mapped to their messages.
func (fe FieldErrors) Fields() map[string]string {
	m := make(map[string]string, len(fe))
	for _, fld := range fe {
		m[fld.Field] = fld.Err
	}

	return m
}

func message(verror validator.FieldError) string {
	switch verror.Tag() {
	case "required":
		return "This field is required"
	case "mxid":
		return fmt.Sprintf("%s must be a Matrix identifier of the form %slocalpart:server", verror.Field(), sigils(verror.Param()))
	default:
		return verror.Translate(translator)
	}
}

func sigils(param string) string {
	if len(param) == 1 {
		return param
	}

	return "[" + param + "]"
}
