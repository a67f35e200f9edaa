package forms

import (
	"regexp"
	"strings"
)

// LoginForm is the sign-in form.
type LoginForm struct {
	Email      string `json:"email" form:"email" validate:"required,email_strict"`
	Password   string `json:"password" form:"password" validate:"required,min=4"`
	RememberMe bool   `json:"rememberMe" form:"rememberMe"`
}

func (LoginForm) messages() map[string]string {
	return map[string]string{
		"email.required":     "Email is required",
		"email.email_strict": "Invalid email address",
		"password.required":  "Password is required",
		"password.min":       "Password must be at least 4 characters",
	}
}

// Normalize trims surrounding whitespace from the email.
func (f *LoginForm) Normalize() {
	f.Email = strings.TrimSpace(f.Email)
}

// SignupForm is the registration form. Only name, email and password are
// sent to the backend.
type SignupForm struct {
	Name            string `json:"name" form:"name" validate:"required"`
	Email           string `json:"email" form:"email" validate:"required,email_strict"`
	Password        string `json:"password" form:"password" validate:"required,min=4"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,eqfield=Password"`
	AgreeToTerms    bool   `json:"agreeToTerms" form:"agreeToTerms" validate:"required"`
}

func (SignupForm) messages() map[string]string {
	return map[string]string{
		"name.required":            "Full name is required",
		"email.required":           "Email is required",
		"email.email_strict":       "Invalid email address",
		"password.required":        "Password is required",
		"password.min":             "Password must be at least 4 characters",
		"confirmPassword.required": "Please confirm your password",
		"confirmPassword.eqfield":  "Passwords do not match",
		"agreeToTerms.required":    "You must agree to the terms",
	}
}

// Normalize trims surrounding whitespace from name and email.
func (f *SignupForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
}

// PasswordHint is one advisory password strength requirement.
type PasswordHint struct {
	Text string `json:"text"`
	Met  bool   `json:"met"`
}

var (
	hasUpper = regexp.MustCompile(`[A-Z]`)
	hasLower = regexp.MustCompile(`[a-z]`)
	hasDigit = regexp.MustCompile(`\d`)
)

// PasswordHints reports the strength requirements shown beside the signup
// password. They are advisory and never block submission.
func PasswordHints(password string) []PasswordHint {
	return []PasswordHint{
		{Text: "At least 8 characters", Met: len(password) >= 8},
		{Text: "Contains uppercase letter", Met: hasUpper.MatchString(password)},
		{Text: "Contains lowercase letter", Met: hasLower.MatchString(password)},
		{Text: "Contains number", Met: hasDigit.MatchString(password)},
	}
}
