package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-portal/internal/forms"
)

type upstreamErr struct{ msg string }

func (e upstreamErr) Error() string       { return "upstream: " + e.msg }
func (e upstreamErr) UserMessage() string { return e.msg }

type fakeResetter struct {
	mu sync.Mutex

	requestErr error
	verifyErr  error
	resetErr   error
	release    chan struct{}

	requests     []string
	verifyTokens []string
	resets       [][3]string
}

func (f *fakeResetter) RequestPasswordReset(_ context.Context, email string) (string, string, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, email)
	if f.requestErr != nil {
		return "", "", f.requestErr
	}
	return "OTP sent to your email", fmt.Sprintf("rt-%d", len(f.requests)), nil
}

func (f *fakeResetter) VerifyOTP(_ context.Context, token, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyTokens = append(f.verifyTokens, token)
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return "OTP verified", nil
}

func (f *fakeResetter) ResetPassword(_ context.Context, token, otp, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, [3]string{token, otp, password})
	if f.resetErr != nil {
		return "", f.resetErr
	}
	return "Password reset successful", nil
}

func newTestFlow(api PasswordResetter) (*Flow, *Scheduler, *fakeClock) {
	clock := newFakeClock()
	sched := NewScheduler(clock)
	return NewFlow(api, sched, DefaultTimings(), nil), sched, clock
}

func toOTP(t *testing.T, f *Flow) {
	t.Helper()
	require.NoError(t, f.SubmitEmail(context.Background(), "user@example.com"))
}

func toReset(t *testing.T, f *Flow) {
	t.Helper()
	toOTP(t, f)
	require.NoError(t, f.SubmitOTP(context.Background(), "123456"))
}

func TestRequestResetEntersOTP(t *testing.T) {
	api := &fakeResetter{}
	f, _, _ := newTestFlow(api)

	require.NoError(t, f.SubmitEmail(context.Background(), "user@example.com"))

	st := f.State()
	assert.Equal(t, StageOTP, st.Stage)
	assert.Equal(t, 300, st.OTPExpiry)
	assert.Equal(t, "05:00", st.OTPExpiryLabel)
	assert.Equal(t, 60, st.ResendCooldown)
	assert.False(t, st.CanResend)
	assert.Equal(t, "OTP sent to your email", st.Message)
	assert.Equal(t, "user@example.com", st.Email)
	assert.Equal(t, []string{"user@example.com"}, api.requests)
}

func TestInvalidEmailNeverCallsBackend(t *testing.T) {
	api := &fakeResetter{}
	f, _, _ := newTestFlow(api)

	err := f.SubmitEmail(context.Background(), "not-an-email")
	var fe forms.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Invalid email format", fe["email"])
	assert.Empty(t, api.requests)
	assert.Equal(t, StageEmail, f.State().Stage)
	assert.Equal(t, "Invalid email format", f.State().Fields["email"])
}

func TestRequestResetFailureStaysOnEmail(t *testing.T) {
	api := &fakeResetter{requestErr: upstreamErr{"Email not registered"}}
	f, _, _ := newTestFlow(api)

	require.Error(t, f.SubmitEmail(context.Background(), "user@example.com"))
	st := f.State()
	assert.Equal(t, StageEmail, st.Stage)
	assert.Equal(t, "Email not registered", st.Error)

	api.requestErr = errors.New("connection refused")
	require.Error(t, f.SubmitEmail(context.Background(), "user@example.com"))
	assert.Equal(t, MsgSendFailed, f.State().Error)
}

func TestCountdownsTick(t *testing.T) {
	f, _, clock := newTestFlow(&fakeResetter{})
	toOTP(t, f)

	clock.Advance(10 * time.Second)
	st := f.State()
	assert.Equal(t, 290, st.OTPExpiry)
	assert.Equal(t, 50, st.ResendCooldown)
	assert.False(t, st.CanResend)

	clock.Advance(50 * time.Second)
	st = f.State()
	assert.Equal(t, 0, st.ResendCooldown)
	assert.True(t, st.CanResend)
	assert.False(t, f.Expired())

	clock.Advance(240 * time.Second)
	st = f.State()
	assert.Equal(t, 0, st.OTPExpiry)
	assert.True(t, st.Expired)
	assert.True(t, f.Expired())
	assert.Equal(t, StageOTP, st.Stage, "expiry is informational only")
}

func TestResendDisabledDuringCooldown(t *testing.T) {
	api := &fakeResetter{}
	f, _, clock := newTestFlow(api)
	toOTP(t, f)

	clock.Advance(59 * time.Second)
	assert.ErrorIs(t, f.Resend(context.Background()), ErrResendCooldown)
	assert.Len(t, api.requests, 1)

	clock.Advance(time.Second)
	require.NoError(t, f.Resend(context.Background()))
	assert.Equal(t, []string{"user@example.com", "user@example.com"}, api.requests)

	st := f.State()
	assert.Equal(t, StageOTP, st.Stage)
	assert.Equal(t, 300, st.OTPExpiry)
	assert.Equal(t, 60, st.ResendCooldown)

	require.NoError(t, f.SubmitOTP(context.Background(), "654321"))
	assert.Equal(t, []string{"rt-2"}, api.verifyTokens)
}

func TestResendOnlyAtOTPStage(t *testing.T) {
	f, _, _ := newTestFlow(&fakeResetter{})
	assert.ErrorIs(t, f.Resend(context.Background()), ErrWrongStage)
}

func TestWrongOTPKeepsStageAndCountdowns(t *testing.T) {
	api := &fakeResetter{verifyErr: upstreamErr{"Invalid OTP"}}
	f, _, clock := newTestFlow(api)
	toOTP(t, f)
	clock.Advance(5 * time.Second)

	require.Error(t, f.SubmitOTP(context.Background(), "000000"))

	st := f.State()
	assert.Equal(t, StageOTP, st.Stage)
	assert.Equal(t, "Invalid OTP", st.Error)
	assert.Empty(t, st.Message)
	assert.Equal(t, 295, st.OTPExpiry)
	assert.Equal(t, 55, st.ResendCooldown)

	api.verifyErr = errors.New("timeout")
	require.Error(t, f.SubmitOTP(context.Background(), "000000"))
	assert.Equal(t, MsgVerifyFailed, f.State().Error)
}

func TestResetNeverReachedWithoutVerification(t *testing.T) {
	api := &fakeResetter{verifyErr: upstreamErr{"Invalid OTP"}}
	f, _, _ := newTestFlow(api)

	assert.ErrorIs(t, f.SubmitReset(context.Background(), "secret1", "secret1"), ErrWrongStage)
	assert.ErrorIs(t, f.SubmitOTP(context.Background(), "123456"), ErrWrongStage)

	toOTP(t, f)
	require.Error(t, f.SubmitOTP(context.Background(), "123456"))
	assert.ErrorIs(t, f.SubmitReset(context.Background(), "secret1", "secret1"), ErrWrongStage)
	assert.Empty(t, api.resets)
}

func TestLeavingOTPCancelsCountdowns(t *testing.T) {
	f, sched, _ := newTestFlow(&fakeResetter{})
	toOTP(t, f)
	assert.Equal(t, 2, sched.Pending())

	require.NoError(t, f.SubmitOTP(context.Background(), "123456"))
	assert.Equal(t, StageReset, f.State().Stage)
	assert.Equal(t, "OTP verified", f.State().Message)
	assert.Equal(t, 0, sched.Pending())
}

func TestPasswordMismatchMakesNoCall(t *testing.T) {
	api := &fakeResetter{}
	f, _, _ := newTestFlow(api)
	toReset(t, f)

	assert.ErrorIs(t, f.SubmitReset(context.Background(), "secret1", "secret2"), ErrPasswordMismatch)
	assert.Empty(t, api.resets)

	st := f.State()
	assert.Equal(t, StageReset, st.Stage)
	assert.Equal(t, MsgPasswordMismatch, st.Error)
	assert.Empty(t, st.Message)
}

func TestShortPasswordMakesNoCall(t *testing.T) {
	api := &fakeResetter{}
	f, _, _ := newTestFlow(api)
	toReset(t, f)

	var fe forms.FieldErrors
	require.ErrorAs(t, f.SubmitReset(context.Background(), "abc", "abc"), &fe)
	assert.Equal(t, "Minimum 6 characters required", fe["newPassword"])
	assert.Empty(t, api.resets)
}

func TestResetFailureAllowsRetry(t *testing.T) {
	api := &fakeResetter{resetErr: errors.New("503")}
	f, _, _ := newTestFlow(api)
	toReset(t, f)

	require.Error(t, f.SubmitReset(context.Background(), "secret1", "secret1"))
	assert.Equal(t, StageReset, f.State().Stage)
	assert.Equal(t, MsgResetFailed, f.State().Error)

	api.resetErr = nil
	require.NoError(t, f.SubmitReset(context.Background(), "secret1", "secret1"))
	require.Len(t, api.resets, 2)
	assert.Equal(t, [3]string{"rt-1", "123456", "secret1"}, api.resets[1])
}

func TestSuccessfulResetNavigatesAfterDelay(t *testing.T) {
	api := &fakeResetter{}
	f, sched, clock := newTestFlow(api)
	toReset(t, f)

	navigated := 0
	f.OnNavigate(func() { navigated++ })

	require.NoError(t, f.SubmitReset(context.Background(), "secret1", "secret1"))
	st := f.State()
	assert.Equal(t, StageDone, st.Stage)
	assert.Equal(t, "Password reset successful", st.Message)
	assert.Equal(t, "/login", st.RedirectTo)
	assert.Equal(t, 3, st.RedirectAfter)
	assert.False(t, st.Navigated)
	assert.Equal(t, 1, sched.Pending())

	clock.Advance(2 * time.Second)
	assert.False(t, f.State().Navigated)
	assert.Equal(t, 0, navigated)

	clock.Advance(time.Second)
	assert.True(t, f.State().Navigated)
	assert.Equal(t, 1, navigated)
	assert.Equal(t, 0, sched.Pending())
}

func TestRestartReturnsToEmail(t *testing.T) {
	f, sched, _ := newTestFlow(&fakeResetter{})
	toOTP(t, f)

	require.NoError(t, f.Restart())
	st := f.State()
	assert.Equal(t, StageEmail, st.Stage)
	assert.Empty(t, st.Email)
	assert.Equal(t, 0, sched.Pending())
}

func TestCloseStopsEverything(t *testing.T) {
	f, sched, clock := newTestFlow(&fakeResetter{})
	toOTP(t, f)
	clock.Advance(20 * time.Second)

	f.Close()
	assert.Equal(t, 0, sched.Pending())
	assert.ErrorIs(t, f.SubmitOTP(context.Background(), "123456"), ErrClosed)

	clock.Advance(20 * time.Second)
	assert.Equal(t, 280, f.State().OTPExpiry)
}

func TestConcurrentSubmitIsRejected(t *testing.T) {
	api := &fakeResetter{release: make(chan struct{})}
	f, _, _ := newTestFlow(api)

	done := make(chan error, 1)
	go func() { done <- f.SubmitEmail(context.Background(), "user@example.com") }()

	require.Eventually(t, f.Busy, time.Second, time.Millisecond)
	assert.ErrorIs(t, f.SubmitEmail(context.Background(), "user@example.com"), ErrBusy)
	assert.ErrorIs(t, f.Restart(), ErrBusy)
	assert.True(t, f.State().Busy)

	close(api.release)
	require.NoError(t, <-done)
	assert.Len(t, api.requests, 1)
	assert.False(t, f.State().Busy)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "00:00", FormatUnits(-1))
	assert.Equal(t, "01:05", FormatUnits(65))
	assert.Equal(t, "05:00", FormatUnits(300))
}
