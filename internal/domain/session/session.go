// Package session holds the authentication session domain types.
package session

// Status is the authentication lifecycle state.
type Status string

const (
	// StatusIdle means no sign-in is in progress and no session exists.
	StatusIdle Status = "idle"

	// StatusLoading means a sign-in or sign-up call is in flight.
	StatusLoading Status = "loading"

	// StatusAuthenticated means both a user and a token are present.
	StatusAuthenticated Status = "authenticated"
)

// User is the cached profile of the signed-in account.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RedirectTarget is a single-slot pending navigation destination, set at the
// start of an auth detour and consumed exactly once when the flow completes.
// It survives side paths (forgot password, OTP, reset) because it lives on
// the session, not the screen that set it.
type RedirectTarget struct {
	Target string            `json:"target"`
	Params map[string]string `json:"params,omitempty"`
}

// Credentials is the sign-in input.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=1"`
}

// Registration is the sign-up input.
type Registration struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}
