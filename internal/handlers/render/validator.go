package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("objectname", validateObjectName)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// Bucket object name that is safe to put into public URL path:
// relative, without empty or dot segments and without control characters
func validateObjectName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > 1024 {
		return false
	}

	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f || r == '#' || r == '?' {
			return false
		}
	}

	return true
}
