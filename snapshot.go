package funnel

// Stage is a position in the account funnel.
type Stage = string

const (
	// StageAnonymous no account attached to the session
	StageAnonymous Stage = "anonymous"
	// StageUnverified account exists, email not verified
	StageUnverified Stage = "unverified"
	// StageUnpaid verified account without a settled payment
	StageUnpaid Stage = "unpaid"
	// StageActive fully provisioned account
	StageActive Stage = "active"
)

// SessionSnapshot is a point-in-time read of session state. Loading means
// "state unknown, suspend decisions"; once it turns false it only reverts
// through an explicit logout/re-bootstrap.
type SessionSnapshot struct {
	Loading bool     `json:"loading"`
	Account *Account `json:"account,omitempty"`
}

// Stage derives the funnel position from the snapshot. Paid is authoritative:
// an account claiming completed setup without a settled payment is still
// treated as unpaid.
func (s *SessionSnapshot) Stage() Stage {
	if s == nil || s.Account == nil {
		return StageAnonymous
	}

	account := s.Account
	if !account.Verified {
		return StageUnverified
	}

	if !account.Paid {
		return StageUnpaid
	}

	return StageActive
}

// Anonymous reports whether the snapshot carries no account.
func (s *SessionSnapshot) Anonymous() bool {
	return s == nil || s.Account == nil
}
