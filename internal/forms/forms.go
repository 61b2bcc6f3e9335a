// Package forms decodes and validates the HTML forms posted by the browser.
package forms

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxCaptionLength is the longest caption, in characters, a post may carry.
const MaxCaptionLength = 1000

var allowedImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	_ = v.RegisterValidation("imagefile", func(fl validator.FieldLevel) bool {
		return allowedImageExts[strings.ToLower(filepath.Ext(fl.Field().String()))]
	})
	return v
}

// Errors maps a form field name to the message shown next to it.
type Errors map[string]string

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// RegisterForm is the body of POST /register.
type RegisterForm struct {
	Email     string `form:"email"     validate:"required,email,min=3,max=60"`
	Password  string `form:"password"  validate:"required,min=3,max=60,eqfield=Password2"`
	Password2 string `form:"password2" validate:"required,min=3,max=30"`
}

// LoginForm is the body of POST /login.
type LoginForm struct {
	Email      string `form:"email"    validate:"required,email,min=3,max=60"`
	Password   string `form:"password" validate:"required,min=3,max=30"`
	RememberMe bool   `form:"remember_me"`
}

// PostForm is the body of the create and edit post forms. ImageName is the
// client-side filename of the uploaded file, empty when none was chosen.
type PostForm struct {
	Caption   string `form:"caption" validate:"max=1000"`
	ImageName string `form:"image"   validate:"omitempty,imagefile"`
}

func ParseRegister(r *http.Request) RegisterForm {
	return RegisterForm{
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}
}

func ParseLogin(r *http.Request) LoginForm {
	remember := r.PostFormValue("remember_me")
	return LoginForm{
		Email:      strings.TrimSpace(r.PostFormValue("email")),
		Password:   r.PostFormValue("password"),
		RememberMe: remember == "on" || remember == "true" || remember == "1" || remember == "y",
	}
}

// Validate runs the struct tags of form and returns nil or Errors.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "eqfield":
		return "Passwords must match"
	case "imagefile":
		return "Images only!"
	case "min":
		return fmt.Sprintf("Must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters long.", fe.Param())
	}
	return "Invalid value."
}
