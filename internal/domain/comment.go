package domain

import "time"

// Comment is a note left on a bug. Comments are create-only; there is no
// update path for them.
type Comment struct {
	ID        int64     `json:"id"`
	BugID     *int64    `json:"bug_id"`
	AuthorID  *int64    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Initiative is a long-running organizational effort. Create-only, like Comment.
type Initiative struct {
	ID             int64     `json:"id"`
	OrganizationID *int64    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}
