// Package recovery implements the three-stage password recovery wizard:
// request a code by email, verify the code, set a new password.
package recovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/forms"
)

// Stage is a step of the wizard.
type Stage string

const (
	StageEmail Stage = "EMAIL"
	StageOTP   Stage = "OTP"
	StageReset Stage = "RESET"
	// StageDone follows a successful reset while navigation is pending.
	StageDone Stage = "DONE"
)

// Prompt is the instruction shown for the stage.
func (s Stage) Prompt() string {
	switch s {
	case StageEmail:
		return "Enter your registered email to receive an OTP."
	case StageOTP:
		return "Enter the OTP sent to your email to verify."
	case StageReset:
		return "Enter your new password below to complete the reset."
	}
	return ""
}

const (
	taskOTPExpiry      = "otp-expiry"
	taskResendCooldown = "resend-cooldown"
	taskRedirect       = "redirect"
)

// Messages shown when the backend gives no reason of its own.
const (
	MsgSendFailed       = "Failed to send OTP."
	MsgVerifyFailed     = "OTP verification failed."
	MsgResetFailed      = "Failed to reset password."
	MsgPasswordMismatch = "Passwords do not match."
	msgResetDone        = "Password reset successful. Redirecting to login..."
)

var (
	ErrBusy             = errors.New("recovery: a submission is already in progress")
	ErrWrongStage       = errors.New("recovery: action not available at this stage")
	ErrResendCooldown   = errors.New("recovery: resend is not available yet")
	ErrPasswordMismatch = errors.New("recovery: passwords do not match")
	ErrClosed           = errors.New("recovery: flow closed")
)

// PasswordResetter is the backend side of recovery.
type PasswordResetter interface {
	RequestPasswordReset(ctx context.Context, email string) (message, resetToken string, err error)
	VerifyOTP(ctx context.Context, resetToken, otp string) (string, error)
	ResetPassword(ctx context.Context, resetToken, otp, newPassword string) (string, error)
}

// Timings are expressed in units of Unit.
type Timings struct {
	OTPWindow      int
	ResendCooldown int
	RedirectDelay  int
	Unit           time.Duration
}

// DefaultTimings: a five minute code window, one minute resend cooldown and
// a three second pause before returning to login.
func DefaultTimings() Timings {
	return Timings{OTPWindow: 300, ResendCooldown: 60, RedirectDelay: 3, Unit: time.Second}
}

// State is what the forgot-password view renders. The reset token is never
// part of it.
type State struct {
	Stage          Stage             `json:"stage"`
	Prompt         string            `json:"prompt,omitempty"`
	Email          string            `json:"email,omitempty"`
	Message        string            `json:"message,omitempty"`
	Error          string            `json:"error,omitempty"`
	Fields         forms.FieldErrors `json:"fields,omitempty"`
	Busy           bool              `json:"busy"`
	OTPExpiry      int               `json:"otpExpiry"`
	OTPExpiryLabel string            `json:"otpExpiryLabel,omitempty"`
	Expired        bool              `json:"expired"`
	ResendCooldown int               `json:"resendCooldown"`
	CanResend      bool              `json:"canResend"`
	RedirectTo     string            `json:"redirectTo,omitempty"`
	RedirectAfter  int               `json:"redirectAfter,omitempty"`
	Navigated      bool              `json:"navigated"`
}

// Flow is one client's recovery attempt. Stages only move forward, and only
// after the backend accepted the corresponding call.
type Flow struct {
	api     PasswordResetter
	sched   *Scheduler
	timings Timings
	logger  *zap.Logger

	mu          sync.Mutex
	stage       Stage
	resetToken  string
	email       string
	verifiedOTP string
	message     string
	errMsg      string
	fields      forms.FieldErrors
	busy        bool
	closed      bool
	navigated   bool
	expiry      *Countdown
	cooldown    *Countdown
	redirect    *Countdown
	onNavigate  func()
}

// NewFlow creates a flow at the EMAIL stage.
func NewFlow(api PasswordResetter, sched *Scheduler, timings Timings, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timings.Unit <= 0 {
		timings.Unit = time.Second
	}
	return &Flow{api: api, sched: sched, timings: timings, logger: logger, stage: StageEmail}
}

// OnNavigate registers fn to run when the post-reset navigation fires.
func (f *Flow) OnNavigate(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onNavigate = fn
}

// SubmitEmail requests a code for email. On success the flow moves to OTP
// with both countdowns started.
func (f *Flow) SubmitEmail(ctx context.Context, email string) error {
	form := forms.RecoveryEmailForm{Email: strings.TrimSpace(email)}
	if err := f.begin(StageEmail, form, nil); err != nil {
		return err
	}
	return f.requestCode(ctx, form.Email)
}

// Resend requests a new code for the email captured at the EMAIL stage.
// It is refused while the cooldown runs.
func (f *Flow) Resend(ctx context.Context) error {
	var email string
	err := f.begin(StageOTP, nil, func() error {
		if f.cooldown.Remaining() > 0 {
			return ErrResendCooldown
		}
		email = f.email
		return nil
	})
	if err != nil {
		return err
	}
	return f.requestCode(ctx, email)
}

func (f *Flow) requestCode(ctx context.Context, email string) error {
	msg, token, err := f.api.RequestPasswordReset(ctx, email)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if err != nil {
		f.errMsg = messageOr(err, MsgSendFailed)
		return err
	}
	f.resetToken = token
	f.email = email
	f.message = msg
	f.stage = StageOTP
	f.startCountdowns()
	return nil
}

func (f *Flow) startCountdowns() {
	f.expiry.stop()
	f.cooldown.stop()
	f.expiry = f.sched.Countdown(StageOTP, taskOTPExpiry, f.timings.OTPWindow, f.timings.Unit, func(c *Countdown) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.expiry == c {
			f.logger.Debug("otp window elapsed", zap.String("email", f.email))
		}
	})
	f.cooldown = f.sched.Countdown(StageOTP, taskResendCooldown, f.timings.ResendCooldown, f.timings.Unit, nil)
}

// SubmitOTP verifies otp against the current reset token. A rejected code
// leaves the stage and the countdowns as they were.
func (f *Flow) SubmitOTP(ctx context.Context, otp string) error {
	form := forms.OTPForm{OTP: strings.TrimSpace(otp)}
	var token string
	err := f.begin(StageOTP, form, func() error {
		token = f.resetToken
		return nil
	})
	if err != nil {
		return err
	}

	msg, err := f.api.VerifyOTP(ctx, token, form.OTP)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if err != nil {
		f.errMsg = messageOr(err, MsgVerifyFailed)
		return err
	}
	f.verifiedOTP = form.OTP
	f.message = msg
	f.leave(StageOTP)
	f.stage = StageReset
	return nil
}

// SubmitReset sets the new password. Mismatching passwords are rejected
// without contacting the backend.
func (f *Flow) SubmitReset(ctx context.Context, newPassword, confirmPassword string) error {
	form := forms.NewPasswordForm{NewPassword: newPassword, ConfirmPassword: confirmPassword}
	var token, otp string
	err := f.begin(StageReset, form, func() error {
		if newPassword != confirmPassword {
			f.errMsg = MsgPasswordMismatch
			f.fields = forms.FieldErrors{"confirmPassword": "Passwords do not match"}
			return ErrPasswordMismatch
		}
		token, otp = f.resetToken, f.verifiedOTP
		return nil
	})
	if err != nil {
		return err
	}

	msg, err := f.api.ResetPassword(ctx, token, otp, newPassword)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if err != nil {
		f.errMsg = messageOr(err, MsgResetFailed)
		return err
	}
	if msg == "" {
		msg = msgResetDone
	}
	f.message = msg
	f.leave(StageReset)
	f.stage = StageDone
	f.redirect = f.sched.Countdown(StageDone, taskRedirect, f.timings.RedirectDelay, f.timings.Unit, f.navigate)
	if f.timings.RedirectDelay <= 0 {
		f.navigated = true
	}
	return nil
}

func (f *Flow) navigate(c *Countdown) {
	f.mu.Lock()
	if f.redirect != c || f.navigated {
		f.mu.Unlock()
		return
	}
	f.navigated = true
	fn := f.onNavigate
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// begin validates form, runs the stage specific check and marks the flow
// busy. Prior message and error are cleared once validation passed.
func (f *Flow) begin(stage Stage, form any, check func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.busy {
		return ErrBusy
	}
	if f.stage != stage {
		return ErrWrongStage
	}
	f.fields = nil
	if form != nil {
		if err := forms.Validate(form); err != nil {
			var fe forms.FieldErrors
			if errors.As(err, &fe) {
				f.fields = fe
			}
			return err
		}
	}
	f.message, f.errMsg = "", ""
	if check != nil {
		if err := check(); err != nil {
			return err
		}
	}
	f.busy = true
	return nil
}

// leave cancels the scheduled tasks of stage. Caller holds f.mu.
func (f *Flow) leave(stage Stage) {
	f.sched.CancelStage(stage)
	if stage == StageOTP {
		f.expiry.stop()
		f.cooldown.stop()
	}
}

// Restart abandons the attempt and returns to the EMAIL stage.
func (f *Flow) Restart() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.busy {
		return ErrBusy
	}
	f.leave(f.stage)
	f.stage = StageEmail
	f.resetToken, f.verifiedOTP, f.email = "", "", ""
	f.message, f.errMsg, f.fields = "", "", nil
	f.expiry, f.cooldown, f.redirect = nil, nil, nil
	f.navigated = false
	return nil
}

// Close stops every scheduled task. A closed flow rejects all actions.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.sched.Close()
	f.expiry.stop()
	f.cooldown.stop()
	f.redirect.stop()
}

// Busy reports whether a backend call is in flight.
func (f *Flow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Expired reports whether the code's validity window has run out. It is
// informational: the flow stays at OTP and the backend still decides.
func (f *Flow) Expired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expiredLocked()
}

func (f *Flow) expiredLocked() bool {
	return f.stage == StageOTP && f.expiry.Remaining() == 0
}

// State returns the renderable state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := State{
		Stage:     f.stage,
		Prompt:    f.stage.Prompt(),
		Email:     f.email,
		Message:   f.message,
		Error:     f.errMsg,
		Fields:    f.fields,
		Busy:      f.busy,
		Navigated: f.navigated,
	}
	switch f.stage {
	case StageOTP:
		st.OTPExpiry = f.expiry.Remaining()
		st.OTPExpiryLabel = FormatUnits(st.OTPExpiry)
		st.Expired = f.expiredLocked()
		st.ResendCooldown = f.cooldown.Remaining()
		st.CanResend = st.ResendCooldown == 0 && !f.busy
	case StageDone:
		st.RedirectTo = domain.ViewLogin.Path()
		st.RedirectAfter = f.redirect.Remaining()
	}
	return st
}

type userMessager interface {
	UserMessage() string
}

// messageOr returns the backend's own explanation for err when it has one.
func messageOr(err error, fallback string) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}
