package domain

import "time"

// Claim is the decoded identity payload carried by a signed token. It is
// only trusted after the token's signature and expiry have been checked.
type Claim struct {
	SubjectID string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RevocationRecord marks a token as invalid ahead of its natural expiry.
type RevocationRecord struct {
	Token     string
	RevokedAt time.Time
}
