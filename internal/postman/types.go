package postman

// Workspace is a Postman workspace as returned by GET /workspaces.
type Workspace struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Visibility  string `json:"visibility,omitempty"`
	Description string `json:"description,omitempty"`
}

// WorkspaceDetail is the full workspace from GET /workspaces/{id},
// including its collection memberships.
type WorkspaceDetail struct {
	Workspace
	Collections []CollectionRef `json:"collections,omitempty"`
}

// CollectionRef is a lightweight collection reference inside a workspace.
type CollectionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	UID  string `json:"uid"`
}

// CollectionSummary is a collection as returned by GET /collections.
type CollectionSummary struct {
	ID        string `json:"id"`
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Owner     string `json:"owner,omitempty"`
	ForkCount int    `json:"forkCount,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// CollectionDetail is the full collection from GET /collections/{uid}.
type CollectionDetail struct {
	Info CollectionInfo `json:"info"`
}

// CollectionInfo carries the collection metadata governance cares about.
type CollectionInfo struct {
	ID          string   `json:"_postman_id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Schema      string   `json:"schema,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// User is a team member as returned by GET /users.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Envelope types for the API's top-level response objects.
type workspaceListResponse struct {
	Workspaces []Workspace `json:"workspaces"`
}

type workspaceResponse struct {
	Workspace WorkspaceDetail `json:"workspace"`
}

type collectionListResponse struct {
	Collections []CollectionSummary `json:"collections"`
}

type collectionResponse struct {
	Collection CollectionDetail `json:"collection"`
}

type userListResponse struct {
	Users []User `json:"users"`
}
