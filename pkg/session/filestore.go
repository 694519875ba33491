package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type state struct {
	AccessToken      string `json:"accessToken,omitempty"`
	RefreshToken     string `json:"refreshToken,omitempty"`
	RoleID           string `json:"roleId,omitempty"`
	PendingVerifyFor string `json:"pendingVerifyFor,omitempty"`
	PendingSetupFor  string `json:"pendingSetupFor,omitempty"`
	RedirectTarget   string `json:"redirectTarget,omitempty"`
}

// FileStore persists session state as a JSON file with 0600 permissions.
type FileStore struct {
	path string

	mu sync.Mutex
	st state
}

// DefaultPath places the session file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "rcm-atlas", "session.json"), nil
}

func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStore) load() error {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(raw, &f.st); err != nil {
		// A corrupt session file behaves like no session at all.
		f.st = state{}
	}
	return nil
}

func (f *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.MarshalIndent(f.st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileStore) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st.AccessToken
}

func (f *FileStore) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st.RefreshToken
}

func (f *FileStore) SetTokens(access, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.AccessToken = access
	f.st.RefreshToken = refresh
	return f.save()
}

func (f *FileStore) RoleID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st.RoleID
}

func (f *FileStore) SetRoleID(roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.RoleID = roleID
	return f.save()
}

func (f *FileStore) PendingMfaVerify() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st.PendingVerifyFor, f.st.PendingVerifyFor != ""
}

func (f *FileStore) SetPendingMfaVerify(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.PendingVerifyFor = userID
	f.st.PendingSetupFor = ""
	return f.save()
}

func (f *FileStore) PendingMfaSetup() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st.PendingSetupFor, f.st.PendingSetupFor != ""
}

func (f *FileStore) SetPendingMfaSetup(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.PendingSetupFor = userID
	f.st.PendingVerifyFor = ""
	return f.save()
}

func (f *FileStore) ClearPendingMfa() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.PendingVerifyFor = ""
	f.st.PendingSetupFor = ""
	return f.save()
}

func (f *FileStore) RedirectTarget() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st.RedirectTarget
}

func (f *FileStore) SetRedirectTarget(target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.RedirectTarget = target
	return f.save()
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st = state{}
	return f.save()
}
