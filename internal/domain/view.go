package domain

// View names a navigable screen of the portal.
type View string

const (
	ViewLanding         View = "landing"
	ViewLogin           View = "login"
	ViewSignup          View = "signup"
	ViewForgotPassword  View = "forgot-password"
	ViewPendingApproval View = "pending-approval"
	ViewUnauthorized    View = "unauthorized"
	ViewDashboard       View = "dashboard"
	ViewAdmin           View = "admin"
	ViewUser            View = "user"
	ViewLoading         View = "loading"
)

// Path returns the route serving the view.
func (v View) Path() string {
	if v == ViewLanding {
		return "/"
	}
	return "/" + string(v)
}
