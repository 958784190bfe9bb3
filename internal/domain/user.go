package domain

import "time"

// User represents a platform account.
type User struct {
	ID             int64     `json:"id"`
	OrganizationID *int64    `json:"organization_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	PasswordHash   []byte    `json:"-"`
	OnlineStatus   bool      `json:"online_status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Set assigns a value onto the field named by a change set key.
// The identifier and credential fields are deliberately absent.
func (u *User) Set(field string, value any) error {
	switch field {
	case "id":
		return ErrImmutableField
	case "organization_id":
		id, err := nullableInt64Value(field, value)
		if err != nil {
			return err
		}
		u.OrganizationID = id
	case "username":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		u.Username = s
	case "email":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		u.Email = s
	case "display_name":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		u.DisplayName = s
	case "online_status":
		b, err := boolValue(field, value)
		if err != nil {
			return err
		}
		u.OnlineStatus = b
	default:
		return UnknownFieldError{Field: field}
	}
	return nil
}
