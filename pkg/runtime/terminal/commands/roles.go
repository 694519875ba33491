package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rcm-tools/rcm-atlas/pkg/models/domain"
	"github.com/rcm-tools/rcm-atlas/pkg/services/crud"
	"github.com/rcm-tools/rcm-atlas/pkg/services/permissions"
	"github.com/spf13/cobra"
)

// NewRolesCmd groups role management with the permission editor, the same
// surface the roles screen exposes.
func NewRolesCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage roles and their module permissions",
	}

	cmd.AddCommand(
		newListCmd[api.Role](env, "roles"),
		newGetCmd[api.Role](env, "roles"),
		newCreateCmd[api.Role](env, "roles"),
		newUpdateCmd[api.Role](env, "roles"),
		newDeleteCmd[api.Role](env, "roles"),
		newRoleTreeCmd(env),
		newPermissionsCmd(env),
	)
	return cmd
}

func newRoleTreeCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show the module tree used by the permission editor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireAuth(cmd, deps); err != nil {
				return err
			}
			if err := requireRolesView(cmd, deps); err != nil {
				return err
			}

			modules, err := deps.Perms.ListModules(cmd.Context())
			if err != nil {
				return err
			}
			roots := permissions.BuildModuleTree(modules, permissions.DefaultTreeLayout())
			printTree(env, roots, 0)
			return nil
		},
	}
}

func printTree(env *Env, nodes []*domain.ModuleNode, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(env.Output, "%s%s\n", strings.Repeat("  ", depth), n.Name)
		printTree(env, n.Children, depth+1)
	}
}

func newPermissionsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Inspect and replace a role's permission list",
	}

	var getRoleID string
	get := &cobra.Command{
		Use:   "get",
		Short: "Show the permissions of a role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireAuth(cmd, deps); err != nil {
				return err
			}
			if err := requireRolesView(cmd, deps); err != nil {
				return err
			}

			set, err := deps.Perms.Load(cmd.Context(), getRoleID)
			if err != nil {
				return err
			}

			modules, err := deps.Perms.ListModules(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range modules {
				p := set.For(m.Name)
				fmt.Fprintf(env.Output, "%-30s view=%-5t create=%-5t update=%-5t delete=%t\n",
					m.Name, p.CanView, p.CanCreate, p.CanUpdate, p.CanDelete)
			}
			return nil
		},
	}
	get.Flags().StringVar(&getRoleID, "role-id", "", "Role to inspect")
	_ = get.MarkFlagRequired("role-id")

	var setRoleID, file string
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace a role's permissions from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireAuth(cmd, deps); err != nil {
				return err
			}
			err = requirePermission(cmd.Context(), deps, rolesModule(),
				func(p domain.ModulePermission) bool { return p.CanUpdate })
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read permissions file: %w", err)
			}
			var perms []api.Permission
			if err := json.Unmarshal(raw, &perms); err != nil {
				return fmt.Errorf("parse permissions file: %w", err)
			}

			if err := deps.Perms.Save(cmd.Context(), setRoleID, perms); err != nil {
				return err
			}
			fmt.Fprintln(env.Output, "Permissions saved.")
			return nil
		},
	}
	set.Flags().StringVar(&setRoleID, "role-id", "", "Role to update")
	set.Flags().StringVarP(&file, "file", "f", "", "JSON file with the full permission list")
	_ = set.MarkFlagRequired("role-id")
	_ = set.MarkFlagRequired("file")

	cmd.AddCommand(get, set)
	return cmd
}

func requireRolesView(cmd *cobra.Command, deps *Deps) error {
	return requirePermission(cmd.Context(), deps, rolesModule(),
		func(p domain.ModulePermission) bool { return p.CanView })
}

func rolesModule() string {
	endpoint, err := crud.Lookup("roles")
	if err != nil {
		return "Roles"
	}
	return endpoint.Module
}
