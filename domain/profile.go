package domain

import "strings"

// ProfilePatch edits the contact details of a seller or user. Nil fields are
// left unchanged; Phone applies to sellers only.
type ProfilePatch struct {
	Name  *string
	Email *string
	Phone *string
}

// Normalize trims the fields, lowercases the email and rejects blanks.
func (p ProfilePatch) Normalize() (ProfilePatch, error) {
	if p.Name == nil && p.Email == nil && p.Phone == nil {
		return p, Detail(ErrInvalidPayload, "nothing to update")
	}
	out := ProfilePatch{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return p, Detail(ErrInvalidPayload, "name must not be blank")
		}
		out.Name = &name
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if email == "" || !strings.Contains(email, "@") {
			return p, Detail(ErrInvalidPayload, "email is malformed")
		}
		out.Email = &email
	}
	if p.Phone != nil {
		phone := strings.TrimSpace(*p.Phone)
		out.Phone = &phone
	}
	return out, nil
}
