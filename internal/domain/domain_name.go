package domain

import "time"

// DomainName is a hostname registered under a project.
type DomainName struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	Hostname  string    `json:"hostname"`
	CreatedAt time.Time `json:"created_at"`
}

// Set assigns a value onto the field named by a change set key.
func (d *DomainName) Set(field string, value any) error {
	switch field {
	case "id":
		return ErrImmutableField
	case "project_id":
		id, err := int64Value(field, value)
		if err != nil {
			return err
		}
		d.ProjectID = id
	case "name":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		d.Name = s
	case "hostname":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		d.Hostname = s
	default:
		return UnknownFieldError{Field: field}
	}
	return nil
}
