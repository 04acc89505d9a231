package directory

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process [Directory].
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	packages map[int64]*Package
	nextID   int64
	now      func() time.Time
}

// NewMemory creates a Memory directory with packages. The first package
// flagged as default is the default; later flags are cleared. If none is
// flagged, the first one is. Without packages a "Standard package" default
// is created.
func NewMemory(packages ...Package) *Memory {
	m := &Memory{
		accounts: make(map[string]*Account),
		packages: make(map[int64]*Package),
		now:      time.Now,
	}
	if len(packages) == 0 {
		packages = []Package{{ID: 0, Name: "Standard package", Default: true}}
	}

	defaultAt := 0
	for i, p := range packages {
		if p.Default {
			defaultAt = i
			break
		}
	}
	for i, p := range packages {
		p := p
		p.Default = i == defaultAt
		m.packages[p.ID] = &p
	}
	return m
}

func (m *Memory) FindByUsername(_ context.Context, username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.accounts[normalizeUsername(username)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *Memory) DefaultPackage(context.Context) (*Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.packages {
		if p.Default {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPackageNotFound
}

func (m *Memory) PackageByID(_ context.Context, id int64) (*Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.packages[id]
	if !ok {
		return nil, ErrPackageNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) Create(_ context.Context, in AccountInput, passwordHash string) (*Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeUsername(in.Username)
	if _, exists := m.accounts[key]; exists {
		return nil, ErrAccountExists
	}
	if !m.hasPackageLocked(in.Package) {
		return nil, ErrPackageNotFound
	}

	m.nextID++
	acc := &Account{
		ID:           strconv.FormatInt(m.nextID, 10),
		Username:     in.Username,
		Email:        in.Email,
		Package:      in.Package,
		Role:         in.Role,
		PasswordHash: passwordHash,
		Active:       in.Active,
		CreatedAt:    m.now().UTC(),
	}
	m.accounts[key] = acc

	cp := *acc
	return &cp, nil
}

// Len returns the number of provisioned accounts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

func (m *Memory) hasPackageLocked(name string) bool {
	for _, p := range m.packages {
		if p.Name == name {
			return true
		}
	}
	return false
}
