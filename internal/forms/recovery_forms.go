package forms

// RecoveryEmailForm starts a password recovery.
type RecoveryEmailForm struct {
	Email string `json:"email" form:"email" validate:"required,email_simple"`
}

func (RecoveryEmailForm) messages() map[string]string {
	return map[string]string{
		"email.required":     "Email is required",
		"email.email_simple": "Invalid email format",
	}
}

// OTPForm carries the one-time code mailed to the user.
type OTPForm struct {
	OTP string `json:"otp" form:"otp" validate:"required,min=6"`
}

func (OTPForm) messages() map[string]string {
	return map[string]string{
		"otp.required": "OTP is required",
		"otp.min":      "OTP must be 6 digits",
	}
}

// NewPasswordForm is the final recovery step. Equality of the two fields is
// checked by the recovery flow itself.
type NewPasswordForm struct {
	NewPassword     string `json:"newPassword" form:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required"`
}

func (NewPasswordForm) messages() map[string]string {
	return map[string]string{
		"newPassword.required":     "New password is required",
		"newPassword.min":          "Minimum 6 characters required",
		"confirmPassword.required": "Please confirm your password",
	}
}
