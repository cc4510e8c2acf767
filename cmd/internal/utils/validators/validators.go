package validators

import (
	"perdecomp/cmd/internal/utils/cnpj"
	"reflect"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

var hasSpaces = regexp.MustCompile(`\s+`)

// Register installs every custom tag on validate.
func Register(validate *validator.Validate) {
	_ = validate.RegisterValidation("cnpj", CNPJ)
	_ = validate.RegisterValidation("isodate", ISODate)
	_ = validate.RegisterValidation("nodupes", NoDupes)
	_ = validate.RegisterValidation("nospaces", NoWhiteSpaces)
}

// CNPJ accepts punctuated or bare CNPJs with valid check digits.
func CNPJ(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return cnpj.IsValid(val)
}

// ISODate accepts YYYY-MM-DD calendar dates.
func ISODate(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := time.Parse(time.DateOnly, val)
	return err == nil
}

// NoWhiteSpaces returns false if the string contains any whitespace (rejecting the user input).
func NoWhiteSpaces(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return !hasSpaces.MatchString(field.String())
}

// NoDupes rejects slices with repeated values. CNPJs are compared by digits,
// so "46.241.741/0001-65" and "46241741000165" count as the same entry.
func NoDupes(fl validator.FieldLevel) bool {
	slice := fl.Field()
	if slice.Kind() != reflect.Slice {
		log.Warnf("validator 'nodupes' applied to non-slice type: %s\n", slice.Kind().String())
		return false
	}

	length := slice.Len()
	seen := make(map[any]bool, length)
	for i := 0; i < length; i++ {
		val := slice.Index(i).Interface()
		if s, ok := val.(string); ok && cnpj.IsValid(s) {
			val = cnpj.Normalize(s)
		}
		if _, exists := seen[val]; exists {
			return false
		}
		seen[val] = true
	}
	return true
}
