// Package guard decides whether a view may be rendered for a session.
package guard

import (
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/session"
)

// Kind is the outcome of a guard evaluation.
type Kind int

const (
	// Render shows the requested view.
	Render Kind = iota
	// Pending means the session is still being restored.
	Pending
	// Redirect sends the client to Decision.Location.
	Redirect
)

// Requirement is what a view demands of the session. A zero Role accepts any
// authenticated identity.
type Requirement struct {
	Role domain.Role
}

// RequireRole builds a Requirement for role.
func RequireRole(role domain.Role) Requirement {
	return Requirement{Role: role}
}

// Decision is the result of Evaluate and Dashboard.
type Decision struct {
	Kind     Kind
	Location string
}

func redirect(view domain.View) Decision {
	return Decision{Kind: Redirect, Location: view.Path()}
}

// Evaluate applies req to snap. It holds no state and is called on every
// navigation.
func Evaluate(req Requirement, snap session.Snapshot) Decision {
	if snap.Loading {
		return Decision{Kind: Pending}
	}
	if snap.Identity == nil {
		return redirect(domain.ViewLogin)
	}
	if req.Role != "" && snap.Identity.Role != req.Role {
		return redirect(domain.ViewUnauthorized)
	}
	return Decision{Kind: Render}
}

// Dashboard picks the role-specific landing view. It performs no
// authorization; the target view is guarded itself.
func Dashboard(snap session.Snapshot) Decision {
	if snap.Loading {
		return Decision{Kind: Pending}
	}
	if snap.Identity == nil {
		return redirect(domain.ViewLogin)
	}
	switch snap.Identity.Role {
	case domain.RoleAdmin:
		return redirect(domain.ViewAdmin)
	case domain.RoleUser:
		return redirect(domain.ViewUser)
	}
	return redirect(domain.ViewUnauthorized)
}
