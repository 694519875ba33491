// Package permissions loads the flat per-role permission list and answers
// capability lookups. Lookups are fail-secure: while nothing is loaded, or
// for any module the backend did not mention, every capability is denied.
package permissions

import (
	"context"
	"fmt"

	"github.com/rcm-tools/rcm-atlas/pkg/client"
	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rcm-tools/rcm-atlas/pkg/models/domain"
)

type Service interface {
	Load(ctx context.Context, roleID string) (*Set, error)
	Save(ctx context.Context, roleID string, perms []api.Permission) error
	ListModules(ctx context.Context) ([]api.Module, error)
}

type service struct {
	api *client.Client
}

func NewService(api *client.Client) Service {
	return &service{api: api}
}

func (s *service) Load(ctx context.Context, roleID string) (*Set, error) {
	var perms []api.Permission
	path := fmt.Sprintf("/api/Roles/%s/permissions", roleID)
	if err := s.api.GetJSON(ctx, path, nil, &perms); err != nil {
		return nil, err
	}
	return NewSet(perms), nil
}

// Save replaces the role's permissions in one bulk call. There is no
// partial save.
func (s *service) Save(ctx context.Context, roleID string, perms []api.Permission) error {
	path := fmt.Sprintf("/api/Roles/%s/permissions", roleID)
	return s.api.PutJSON(ctx, path, perms, nil)
}

func (s *service) ListModules(ctx context.Context) ([]api.Module, error) {
	var modules []api.Module
	if err := s.api.GetJSON(ctx, "/api/Modules", nil, &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// Set is an immutable snapshot of one role's permissions.
type Set struct {
	byModule map[string]domain.ModulePermission
}

func NewSet(perms []api.Permission) *Set {
	byModule := make(map[string]domain.ModulePermission, len(perms))
	for _, p := range perms {
		byModule[p.ModuleName] = domain.ModulePermission{
			ModuleName: p.ModuleName,
			CanView:    p.CanView,
			CanCreate:  p.CanCreate,
			CanUpdate:  p.CanUpdate,
			CanDelete:  p.CanDelete,
		}
	}
	return &Set{byModule: byModule}
}

// For returns the capability set for a module. A nil Set or an unknown
// module yields the zero value, which denies everything.
func (s *Set) For(moduleName string) domain.ModulePermission {
	if s == nil {
		return domain.ModulePermission{ModuleName: moduleName}
	}
	if p, ok := s.byModule[moduleName]; ok {
		return p
	}
	return domain.ModulePermission{ModuleName: moduleName}
}
