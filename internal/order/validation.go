package order

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Indian mobile numbers: optional +91/91 prefix, ten digits starting 6-9.
var mobilePattern = regexp.MustCompile(`^(?:\+91|91)?[6-9][0-9]{9}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("in_mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "email":
		return "must be a valid email address"
	case "in_mobile":
		return "must be a valid 10-digit Indian mobile number"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("must contain at most %s entries", fe.Param())
		case reflect.String:
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}

// fieldPath turns "CheckoutRequest.items[0].quantity" into "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validateCheckout(req *CheckoutRequest, guest bool) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	fields := map[string]string{}
	if err := validate.Struct(req); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			fields[fieldPath(fe)] = fieldMessage(fe)
		}
	}

	switch {
	case len(req.Items) == 0 && req.ProductID == "":
		fields["items"] = "is required"
	case len(req.Items) > 0 && req.ProductID != "":
		fields["product_id"] = "cannot be combined with items"
	case len(req.Items) == 0 && req.Quantity == 0:
		if _, ok := fields["quantity"]; !ok {
			fields["quantity"] = "is required"
		}
	}

	if guest {
		for name, v := range map[string]string{"name": req.Name, "email": req.Email, "phone": req.Phone} {
			if v == "" {
				fields[name] = "is required"
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
