package dto

// BoardQuery filters the user task board.
type BoardQuery struct {
	Status string `query:"status"`
	Search string `query:"search"`
}

// OTPRequest submits the one-time code.
type OTPRequest struct {
	OTP string `json:"otp" form:"otp"`
}

// EmailRequest starts a recovery.
type EmailRequest struct {
	Email string `json:"email" form:"email"`
}

// ResetRequest sets the new password.
type ResetRequest struct {
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}
