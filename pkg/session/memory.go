package session

import "sync"

// MemoryStore keeps session state in memory only. Used in tests and for
// one-shot commands where persisting tokens is undesirable.
type MemoryStore struct {
	mu sync.Mutex
	st state
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.AccessToken
}

func (m *MemoryStore) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.RefreshToken
}

func (m *MemoryStore) SetTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.AccessToken = access
	m.st.RefreshToken = refresh
	return nil
}

func (m *MemoryStore) RoleID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.RoleID
}

func (m *MemoryStore) SetRoleID(roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.RoleID = roleID
	return nil
}

func (m *MemoryStore) PendingMfaVerify() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PendingVerifyFor, m.st.PendingVerifyFor != ""
}

func (m *MemoryStore) SetPendingMfaVerify(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.PendingVerifyFor = userID
	m.st.PendingSetupFor = ""
	return nil
}

func (m *MemoryStore) PendingMfaSetup() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PendingSetupFor, m.st.PendingSetupFor != ""
}

func (m *MemoryStore) SetPendingMfaSetup(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.PendingSetupFor = userID
	m.st.PendingVerifyFor = ""
	return nil
}

func (m *MemoryStore) ClearPendingMfa() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.PendingVerifyFor = ""
	m.st.PendingSetupFor = ""
	return nil
}

func (m *MemoryStore) RedirectTarget() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.RedirectTarget
}

func (m *MemoryStore) SetRedirectTarget(target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.RedirectTarget = target
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = state{}
	return nil
}
