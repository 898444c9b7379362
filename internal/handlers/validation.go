package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"kasir/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// report form field names instead of Go field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	}
}

// formState turns a binding error into field messages for the template.
func formState(err error, message string) models.FormState {
	state := models.FormState{Message: message}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		state.AddError("form", "Isian formulir tidak valid.")
		return state
	}
	for _, fe := range verrs {
		state.AddError(fe.Field(), fieldMessage(fe))
	}
	return state
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Wajib diisi."
	case "email":
		return "Format email tidak valid."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Minimal %s karakter.", fe.Param())
		}
		return fmt.Sprintf("Minimal %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Maksimal %s karakter.", fe.Param())
		}
		return fmt.Sprintf("Maksimal %s.", fe.Param())
	}
	return "Tidak valid."
}
