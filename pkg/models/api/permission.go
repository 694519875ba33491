package api

type VisibilityLevel string

const (
	VisibilityTeam         VisibilityLevel = "Team"
	VisibilityIndividual   VisibilityLevel = "Individual"
	VisibilityOrganization VisibilityLevel = "Organization"
)

// Permission is one row of the flat per-role permission list.
type Permission struct {
	ModuleID        string          `json:"moduleId"`
	ModuleName      string          `json:"moduleName"`
	CanView         bool            `json:"canView"`
	CanCreate       bool            `json:"canCreate"`
	CanUpdate       bool            `json:"canUpdate"`
	CanDelete       bool            `json:"canDelete"`
	VisibilityLevel VisibilityLevel `json:"visibilityLevel"`
}

// Module is a permission-scoped unit of the application. ParentID is
// unreliable in backend data; see permissions.BuildModuleTree.
type Module struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
	SortOrder int    `json:"sortOrder,omitempty"`
}
