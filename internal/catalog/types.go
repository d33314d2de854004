package catalog

import "time"

// Workspace is a Postman workspace as stored in the local inventory.
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Collection is a Postman collection as stored in the local inventory.
// WorkspaceID is empty when the collection is not associated with any
// known workspace (the organization governance rule flags this).
type Collection struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	ForkCount   int       `json:"fork_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is a team member as stored in the local inventory.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Counts summarises the inventory for snapshots and run records.
type Counts struct {
	Workspaces  int `json:"workspaces"`
	Collections int `json:"collections"`
	Users       int `json:"users"`
}
