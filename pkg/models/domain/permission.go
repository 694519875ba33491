package domain

// ModulePermission is the capability set the client holds for one module.
// The zero value denies everything, which is what a missing module entry
// must resolve to.
type ModulePermission struct {
	ModuleName string
	CanView    bool
	CanCreate  bool
	CanUpdate  bool
	CanDelete  bool
}

// ModuleNode is one node of the reconstructed permission tree shown in the
// roles editor.
type ModuleNode struct {
	ID       string
	Name     string
	ParentID string
	Children []*ModuleNode
}

// TreeLayout drives module-tree reconstruction. The backend's parent/child
// data is incomplete, so the layout pins a known set of modules under a
// settings root and fixes the display order. Shipped as data so deployments
// can override it without a code change.
type TreeLayout struct {
	// SettingsRoot is the module acting as the "Settings & Configurations"
	// parent. Modules named in SettingsChildren are relocated under it even
	// when their ParentID disagrees.
	SettingsRoot     string
	SettingsChildren []string

	// RootOrder and SettingsOrder fix the sort position of root-level
	// modules and of settings children. Unlisted modules sort after listed
	// ones, alphabetically.
	RootOrder     []string
	SettingsOrder []string
}
