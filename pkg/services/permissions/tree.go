package permissions

import (
	"sort"

	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rcm-tools/rcm-atlas/pkg/models/domain"
)

const settingsRootID = "settings-configurations"

// DefaultTreeLayout mirrors the platform's canonical module arrangement.
// Backend parent/child data is incomplete, so the settings modules are
// pinned here regardless of what ParentID claims.
func DefaultTreeLayout() domain.TreeLayout {
	return domain.TreeLayout{
		SettingsRoot: "Settings & Configurations",
		SettingsChildren: []string{
			"Payers",
			"Plans",
			"Fee Schedules",
			"Entities",
			"Providers",
			"Zip Geo Mappings",
			"Roles",
			"Users",
		},
		RootOrder: []string{
			"Dashboard",
			"RCM Intelligence",
			"Settings & Configurations",
		},
		SettingsOrder: []string{
			"Entities",
			"Providers",
			"Payers",
			"Plans",
			"Fee Schedules",
			"Zip Geo Mappings",
			"Roles",
			"Users",
		},
	}
}

// BuildModuleTree reconstructs the parent/child hierarchy from the flat
// module list. Modules named in layout.SettingsChildren are relocated under
// the settings root even when their ParentID disagrees; a missing settings
// root is synthesized.
func BuildModuleTree(modules []api.Module, layout domain.TreeLayout) []*domain.ModuleNode {
	byID := make(map[string]*domain.ModuleNode, len(modules))
	nodes := make([]*domain.ModuleNode, 0, len(modules))
	for _, m := range modules {
		n := &domain.ModuleNode{ID: m.ID, Name: m.Name, ParentID: m.ParentID}
		byID[m.ID] = n
		nodes = append(nodes, n)
	}

	settingsRoot := findByName(nodes, layout.SettingsRoot)
	if settingsRoot == nil && layout.SettingsRoot != "" {
		settingsRoot = &domain.ModuleNode{ID: settingsRootID, Name: layout.SettingsRoot}
		nodes = append(nodes, settingsRoot)
		byID[settingsRoot.ID] = settingsRoot
	}

	relocate := make(map[string]bool, len(layout.SettingsChildren))
	for _, name := range layout.SettingsChildren {
		relocate[name] = true
	}

	var roots []*domain.ModuleNode
	for _, n := range nodes {
		if n == settingsRoot {
			roots = append(roots, n)
			continue
		}
		if relocate[n.Name] && settingsRoot != nil {
			n.ParentID = settingsRoot.ID
			settingsRoot.Children = append(settingsRoot.Children, n)
			continue
		}
		if parent, ok := byID[n.ParentID]; ok && n.ParentID != "" && parent != n {
			parent.Children = append(parent.Children, n)
			continue
		}
		roots = append(roots, n)
	}

	sortNodes(roots, layout.RootOrder)
	if settingsRoot != nil {
		sortNodes(settingsRoot.Children, layout.SettingsOrder)
	}
	for _, n := range nodes {
		if n != settingsRoot {
			sortNodes(n.Children, nil)
		}
	}
	return roots
}

func findByName(nodes []*domain.ModuleNode, name string) *domain.ModuleNode {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// sortNodes orders listed names first by their position in order, then the
// rest alphabetically.
func sortNodes(nodes []*domain.ModuleNode, order []string) {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		ri, iOK := rank[nodes[i].Name]
		rj, jOK := rank[nodes[j].Name]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return nodes[i].Name < nodes[j].Name
		}
	})
}
