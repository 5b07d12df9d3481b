package models

// User is owned by the external auth/user-management flow. The core only
// reads id/name/email for notifications and cache rebuilds.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
