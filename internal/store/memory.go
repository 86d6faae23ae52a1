package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory keeps every record in process memory. With a state file it also
// writes a JSON snapshot after each mutation and reloads it on start.
type Memory struct {
	stateFile string
	nowFunc   func() time.Time

	mu            sync.RWMutex
	accounts      map[string]Account
	assets        map[string]Asset
	collaborators map[string]Collaborator
}

type memorySnapshot struct {
	Accounts      []Account      `json:"usuarios"`
	Assets        []Asset        `json:"activos"`
	Collaborators []Collaborator `json:"colaboradores"`
}

func NewMemory() *Memory {
	return &Memory{
		nowFunc:       time.Now,
		accounts:      make(map[string]Account),
		assets:        make(map[string]Asset),
		collaborators: make(map[string]Collaborator),
	}
}

func NewMemoryWithFile(path string) (*Memory, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("memory state file path is required")
	}
	m := NewMemory()
	m.stateFile = path
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) GetAccountByEmail(_ context.Context, email string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]Account, error) {
	m.mu.RLock()
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateAccount(_ context.Context, a Account) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[a.Email]; ok {
		return Account{}, ErrConflict
	}
	now := m.nowFunc().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if err := m.mutateLocked(func() { m.accounts[a.Email] = a }); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (m *Memory) SetResetToken(_ context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[email]
	if !ok {
		return ErrNotFound
	}
	exp := expiresAt.UTC()
	a.ResetToken = token
	a.ResetTokenExpires = &exp
	a.UpdatedAt = m.nowFunc().UTC()
	return m.mutateLocked(func() { m.accounts[email] = a })
}

func (m *Memory) ConsumeResetToken(_ context.Context, token string, now time.Time, newHash string) (Account, error) {
	if token == "" {
		return Account{}, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for email, a := range m.accounts {
		if a.ResetToken != token || a.ResetTokenExpires == nil || !a.ResetTokenExpires.After(now) {
			continue
		}
		a.PasswordHash = newHash
		a.ResetToken = ""
		a.ResetTokenExpires = nil
		a.UpdatedAt = now.UTC()
		if err := m.mutateLocked(func() { m.accounts[email] = a }); err != nil {
			return Account{}, err
		}
		return a, nil
	}
	return Account{}, ErrNotFound
}

func (m *Memory) ListAssets(_ context.Context) ([]Asset, error) {
	m.mu.RLock()
	out := make([]Asset, 0, len(m.assets))
	for _, a := range m.assets {
		out = append(out, m.withCollaboratorLocked(a))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetAsset(_ context.Context, serial string) (Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assets[serial]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return m.withCollaboratorLocked(a), nil
}

func (m *Memory) CreateAsset(_ context.Context, a Asset) (Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[a.Serial]; ok {
		return Asset{}, ErrConflict
	}
	a.Collaborator = nil
	a.CreatedAt = m.nowFunc().UTC()
	a.UpdatedAt = nil
	if err := m.mutateLocked(func() { m.assets[a.Serial] = a }); err != nil {
		return Asset{}, err
	}
	return a, nil
}

func (m *Memory) UpdateAsset(_ context.Context, serial string, p AssetPatch) (Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assets[serial]
	if !ok {
		return Asset{}, ErrNotFound
	}
	p.apply(&a)
	now := m.nowFunc().UTC()
	a.UpdatedAt = &now
	if err := m.mutateLocked(func() { m.assets[serial] = a }); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// DeleteAsset is idempotent: deleting a missing serial succeeds.
func (m *Memory) DeleteAsset(_ context.Context, serial string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[serial]; !ok {
		return nil
	}
	return m.mutateLocked(func() { delete(m.assets, serial) })
}

func (m *Memory) ListCollaborators(_ context.Context) ([]Collaborator, error) {
	m.mu.RLock()
	out := make([]Collaborator, 0, len(m.collaborators))
	for _, c := range m.collaborators {
		out = append(out, c)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetCollaborator(_ context.Context, rut string) (Collaborator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collaborators[rut]
	if !ok {
		return Collaborator{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) CreateCollaborator(_ context.Context, c Collaborator) (Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collaborators[c.RUT]; ok {
		return Collaborator{}, ErrConflict
	}
	c.CreatedAt = m.nowFunc().UTC()
	c.UpdatedAt = nil
	if err := m.mutateLocked(func() { m.collaborators[c.RUT] = c }); err != nil {
		return Collaborator{}, err
	}
	return c, nil
}

func (m *Memory) UpdateCollaborator(_ context.Context, rut string, p CollaboratorPatch) (Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collaborators[rut]
	if !ok {
		return Collaborator{}, ErrNotFound
	}
	p.apply(&c)
	now := m.nowFunc().UTC()
	c.UpdatedAt = &now
	if err := m.mutateLocked(func() { m.collaborators[rut] = c }); err != nil {
		return Collaborator{}, err
	}
	return c, nil
}

func (m *Memory) withCollaboratorLocked(a Asset) Asset {
	if c, ok := m.collaborators[a.ResponsibleRUT]; ok {
		a.Collaborator = &CollaboratorRef{Name: c.Name, Email: c.Email}
	}
	return a
}

// mutateLocked applies fn and persists; on a persist failure the previous
// state is restored so callers never observe a half-applied write.
func (m *Memory) mutateLocked(fn func()) error {
	if m.stateFile == "" {
		fn()
		return nil
	}
	prevAccounts := cloneMap(m.accounts)
	prevAssets := cloneMap(m.assets)
	prevCollaborators := cloneMap(m.collaborators)
	fn()
	if err := m.persistLocked(); err != nil {
		m.accounts = prevAccounts
		m.assets = prevAssets
		m.collaborators = prevCollaborators
		return err
	}
	return nil
}

func (m *Memory) load() error {
	b, err := os.ReadFile(m.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read memory state file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	var snap memorySnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("decode memory state file: %w", err)
	}
	for _, a := range snap.Accounts {
		if strings.TrimSpace(a.Email) == "" {
			continue
		}
		m.accounts[a.Email] = a
	}
	for _, a := range snap.Assets {
		if strings.TrimSpace(a.Serial) == "" {
			continue
		}
		a.Collaborator = nil
		m.assets[a.Serial] = a
	}
	for _, c := range snap.Collaborators {
		if strings.TrimSpace(c.RUT) == "" {
			continue
		}
		m.collaborators[c.RUT] = c
	}
	return nil
}

func (m *Memory) persistLocked() error {
	snap := memorySnapshot{
		Accounts:      mapValues(m.accounts),
		Assets:        mapValues(m.assets),
		Collaborators: mapValues(m.collaborators),
	}
	sort.Slice(snap.Accounts, func(i, j int) bool { return snap.Accounts[i].Email < snap.Accounts[j].Email })
	sort.Slice(snap.Assets, func(i, j int) bool { return snap.Assets[i].Serial < snap.Assets[j].Serial })
	sort.Slice(snap.Collaborators, func(i, j int) bool { return snap.Collaborators[i].RUT < snap.Collaborators[j].RUT })

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory state file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.stateFile), 0o755); err != nil {
		return fmt.Errorf("mkdir memory state dir: %w", err)
	}
	if err := os.WriteFile(m.stateFile, b, 0o600); err != nil {
		return fmt.Errorf("write memory state file: %w", err)
	}
	return nil
}

func cloneMap[V any](src map[string]V) map[string]V {
	out := make(map[string]V, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func mapValues[V any](src map[string]V) []V {
	out := make([]V, 0, len(src))
	for _, v := range src {
		out = append(out, v)
	}
	return out
}
