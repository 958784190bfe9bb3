package domain

import "time"

// Bug is a reported defect, optionally attached to a project.
type Bug struct {
	ID          int64     `json:"id"`
	ProjectID   *int64    `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// Set assigns a value onto the field named by a change set key.
func (b *Bug) Set(field string, value any) error {
	switch field {
	case "id":
		return ErrImmutableField
	case "project_id":
		id, err := nullableInt64Value(field, value)
		if err != nil {
			return err
		}
		b.ProjectID = id
	case "title":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		b.Title = s
	case "description":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		b.Description = s
	case "status":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		b.Status = s
	case "severity":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		b.Severity = s
	default:
		return UnknownFieldError{Field: field}
	}
	return nil
}
