package domain

import "time"

// Project is a unit of work owned by an organization.
type Project struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

// Set assigns a value onto the field named by a change set key.
func (p *Project) Set(field string, value any) error {
	switch field {
	case "id":
		return ErrImmutableField
	case "organization_id":
		id, err := int64Value(field, value)
		if err != nil {
			return err
		}
		p.OrganizationID = id
	case "name":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		p.Name = s
	case "description":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		p.Description = s
	default:
		return UnknownFieldError{Field: field}
	}
	return nil
}
