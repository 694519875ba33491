package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rcm-tools/rcm-atlas/pkg/models/domain"
	"github.com/rcm-tools/rcm-atlas/pkg/services/crud"
	"github.com/spf13/cobra"
)

// NewEntityCmds builds one command group per settings entity. All of them
// share the generic CRUD controller; only the payload type differs.
func NewEntityCmds(env *Env) []*cobra.Command {
	return []*cobra.Command{
		newEntityCmd[api.Payer](env, "payers"),
		newEntityCmd[api.Plan](env, "plans"),
		newEntityCmd[api.FeeSchedule](env, "fee-schedules"),
		newEntityCmd[api.Entity](env, "entities"),
		newEntityCmd[api.Provider](env, "providers"),
		newEntityCmd[api.ZipGeoMapping](env, "zip-geo"),
		newEntityCmd[api.User](env, "users"),
	}
}

func newEntityCmd[T any](env *Env, entity string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   entity,
		Short: fmt.Sprintf("Manage %s", entity),
	}

	cmd.AddCommand(
		newListCmd[T](env, entity),
		newGetCmd[T](env, entity),
		newCreateCmd[T](env, entity),
		newUpdateCmd[T](env, entity),
		newDeleteCmd[T](env, entity),
	)
	return cmd
}

func controllerFor[T any](deps *Deps, entity string) (*crud.Controller[T], error) {
	endpoint, err := crud.Lookup(entity)
	if err != nil {
		return nil, err
	}
	return crud.NewController[T](deps.Client, endpoint), nil
}

func newListCmd[T any](env *Env, entity string) *cobra.Command {
	var page, pageSize int
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + entity,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireAuth(cmd, deps); err != nil {
				return err
			}
			ctrl, err := controllerFor[T](deps, entity)
			if err != nil {
				return err
			}
			err = requirePermission(cmd.Context(), deps, ctrl.Module(),
				func(p domain.ModulePermission) bool { return p.CanView })
			if err != nil {
				return err
			}

			result, err := ctrl.List(cmd.Context(), api.Page{Number: page, Size: pageSize, Search: search})
			if err != nil {
				return err
			}
			return printJSON(env, result)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 25, "Page size")
	cmd.Flags().StringVar(&search, "search", "", "Search filter")
	return cmd
}

func newGetCmd[T any](env *Env, entity string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one of " + entity,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireAuth(cmd, deps); err != nil {
				return err
			}
			ctrl, err := controllerFor[T](deps, entity)
			if err != nil {
				return err
			}
			err = requirePermission(cmd.Context(), deps, ctrl.Module(),
				func(p domain.ModulePermission) bool { return p.CanView })
			if err != nil {
				return err
			}

			item, err := ctrl.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(env, item)
		},
	}
}

func newCreateCmd[T any](env *Env, entity string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create one of " + entity,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireAuth(cmd, deps); err != nil {
				return err
			}
			ctrl, err := controllerFor[T](deps, entity)
			if err != nil {
				return err
			}
			err = requirePermission(cmd.Context(), deps, ctrl.Module(),
				func(p domain.ModulePermission) bool { return p.CanCreate })
			if err != nil {
				return err
			}

			item, err := readPayload[T](file)
			if err != nil {
				return err
			}
			created, err := ctrl.Create(cmd.Context(), *item)
			if err != nil {
				return err
			}
			return printJSON(env, created)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON payload file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newUpdateCmd[T any](env *Env, entity string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update one of " + entity,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireAuth(cmd, deps); err != nil {
				return err
			}
			ctrl, err := controllerFor[T](deps, entity)
			if err != nil {
				return err
			}
			err = requirePermission(cmd.Context(), deps, ctrl.Module(),
				func(p domain.ModulePermission) bool { return p.CanUpdate })
			if err != nil {
				return err
			}

			item, err := readPayload[T](file)
			if err != nil {
				return err
			}
			updated, err := ctrl.Update(cmd.Context(), args[0], *item)
			if err != nil {
				return err
			}
			return printJSON(env, updated)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON payload file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDeleteCmd[T any](env *Env, entity string) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of " + entity,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("deletion requires --yes")
			}
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireAuth(cmd, deps); err != nil {
				return err
			}
			ctrl, err := controllerFor[T](deps, entity)
			if err != nil {
				return err
			}
			err = requirePermission(cmd.Context(), deps, ctrl.Module(),
				func(p domain.ModulePermission) bool { return p.CanDelete })
			if err != nil {
				return err
			}

			if err := ctrl.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(env.Output, "Deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the deletion")
	return cmd
}

func readPayload[T any](path string) (*T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return &item, nil
}

func printJSON(env *Env, v any) error {
	enc := json.NewEncoder(env.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
