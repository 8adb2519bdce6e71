package entities

import "fmt"

// UserSummary is the client's view of an account, resolved from the token's
// subject claim.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u UserSummary) Validate() error {
	if u.ID == 0 {
		return fmt.Errorf("user: missing id")
	}
	if u.Email == "" {
		return fmt.Errorf("user %d: missing email", u.ID)
	}
	return nil
}
