package models

// MaxLoginAttempts is the client-side brake on credential submissions.
// The backend enforces its own limit independently.
const MaxLoginAttempts = 5

// LoginAttempt tracks credential submissions for a single login form.
// It lives only as long as the form that owns it.
type LoginAttempt struct {
	Identifier   string `validate:"required,email"`
	Secret       string `validate:"required"`
	AttemptCount int
}

// Blocked reports whether another submission should be refused locally.
func (a *LoginAttempt) Blocked(max int) bool {
	if max <= 0 {
		max = MaxLoginAttempts
	}
	return a.AttemptCount >= max
}
