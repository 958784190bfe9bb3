package domain

import "time"

// Organization groups users, projects and initiatives.
type Organization struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Set assigns a value onto the field named by a change set key.
func (o *Organization) Set(field string, value any) error {
	switch field {
	case "id":
		return ErrImmutableField
	case "name":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		o.Name = s
	case "description":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		o.Description = s
	default:
		return UnknownFieldError{Field: field}
	}
	return nil
}
