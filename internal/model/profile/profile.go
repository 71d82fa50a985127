package profile

import "time"

// Profile captures the account details shown on the auth and history pages.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Update carries the mutable profile fields. Nil fields are left untouched.
type Update struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
}

// Apply copies the non-nil fields of u onto p.
func (u Update) Apply(p *Profile) {
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
}
