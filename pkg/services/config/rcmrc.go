// Package config resolves RCM environment profiles. Profiles normally live
// in ~/.rcmrc (ini sections per environment); standalone profile files are
// also supported for CI use.
package config

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"
)

// Profile names one backend environment.
type Profile struct {
	Name string
	Host string
	// Token optionally pins a static bearer token, bypassing the login
	// flow. Used by service accounts.
	Token string
}

type Registry interface {
	GetProfiles(ctx context.Context) ([]Profile, error)
	GetProfile(ctx context.Context, name string) (*Profile, error)
}

type iniRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &iniRegistry{cfg: cfg}, nil
}

func (r *iniRegistry) GetProfiles(_ context.Context) ([]Profile, error) {
	var profiles []Profile
	for _, section := range r.cfg.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		profiles = append(profiles, Profile{
			Name:  section.Name(),
			Host:  section.Key("host").String(),
			Token: section.Key("token").String(),
		})
	}
	return profiles, nil
}

func (r *iniRegistry) GetProfile(_ context.Context, name string) (*Profile, error) {
	section, err := r.cfg.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", name)
	}

	host := section.Key("host").String()
	if host == "" {
		return nil, fmt.Errorf("profile %s has no host", name)
	}

	return &Profile{
		Name:  name,
		Host:  host,
		Token: section.Key("token").String(),
	}, nil
}
