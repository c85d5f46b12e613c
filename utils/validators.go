package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	saVATPattern   = regexp.MustCompile(`^4\d{9}$`)
	saRegNoPattern = regexp.MustCompile(`^\d{4}/\d{6}/\d{2}$`)
	saPhonePattern = regexp.MustCompile(`^(\+27|0)[1-9]\d{8}$`)
	currencyCode   = regexp.MustCompile(`^[A-Z]{3}$`)
)

// RegisterValidators installs the custom binding rules on gin's validator:
//
//	sa_vat    10-digit South African VAT number starting with 4
//	sa_regno  CIPC registration number, YYYY/NNNNNN/NN
//	sa_phone  +27 or 0 followed by nine digits, spaces ignored
//	currency  3-letter upper-case ISO 4217 code
//
// decimal.Decimal fields are compared as numbers, so gt, gte and lte work on money.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return registerOn(v)
}

func registerOn(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	rules := map[string]*regexp.Regexp{
		"sa_vat":   saVATPattern,
		"sa_regno": saRegNoPattern,
		"currency": currencyCode,
	}
	for tag, re := range rules {
		re := re
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			return err
		}
	}
	return v.RegisterValidation("sa_phone", func(fl validator.FieldLevel) bool {
		return IsSAPhone(fl.Field().String())
	})
}

func IsSAPhone(s string) bool {
	return saPhonePattern.MatchString(strings.ReplaceAll(s, " ", ""))
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}
