package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidProfile wraps every profile validation failure.
var ErrInvalidProfile = errors.New("invalid emergency profile")

const notBlankTag = "notblank"

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report JSON field names instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// EmergencyProfile holds the contact an alert is sent to. Phone and email formats are
// deliberately not checked; only presence of the required names and guardian phone is.
type EmergencyProfile struct {
	SubjectName   string `json:"subject_name" validate:"notblank"`
	SubjectPhone  string `json:"subject_phone,omitempty"`
	GuardianName  string `json:"guardian_name" validate:"notblank"`
	GuardianPhone string `json:"guardian_phone" validate:"notblank"`
	GuardianEmail string `json:"guardian_email,omitempty"`
}

// Validate reports the first missing required field, wrapped in ErrInvalidProfile.
func (p *EmergencyProfile) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s is required", ErrInvalidProfile, verrs[0].Field())
	}
	return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
}

// Normalize trims surrounding whitespace from every field.
func (p *EmergencyProfile) Normalize() {
	p.SubjectName = strings.TrimSpace(p.SubjectName)
	p.SubjectPhone = strings.TrimSpace(p.SubjectPhone)
	p.GuardianName = strings.TrimSpace(p.GuardianName)
	p.GuardianPhone = strings.TrimSpace(p.GuardianPhone)
	p.GuardianEmail = strings.TrimSpace(p.GuardianEmail)
}
