package mocks

import (
	"context"
	"sync"

	"github.com/roster-import-api/internal/permission"
)

// MockChecker allows everything except the denied permissions
type MockChecker struct {
	mu sync.Mutex
	// Denied maps a permission to the organization ids it is denied in;
	// "*" denies it everywhere, "" denies the unscoped check
	Denied map[string][]string
	Err    error
	Checks int
}

// Verify interface compliance
var _ permission.Checker = (*MockChecker)(nil)

func NewMockChecker() *MockChecker {
	return &MockChecker{Denied: make(map[string][]string)}
}

// Deny denies perm in the given organizations, or everywhere when none
func (m *MockChecker) Deny(perm string, organizationIDs ...string) {
	if len(organizationIDs) == 0 {
		organizationIDs = []string{"*"}
	}
	m.Denied[perm] = append(m.Denied[perm], organizationIDs...)
}

func (m *MockChecker) Allowed(ctx context.Context, scope permission.Scope, perm string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Checks++
	if m.Err != nil {
		return false, m.Err
	}

	domains := scope.OrganizationIDs
	if len(domains) == 0 {
		domains = []string{""}
	}
	for _, denied := range m.Denied[perm] {
		if denied == "*" {
			return false, nil
		}
		for _, d := range domains {
			if d == denied {
				return false, nil
			}
		}
	}
	return true, nil
}

// MockAuthorizer hands out the same checker to every user
type MockAuthorizer struct {
	Checker *MockChecker
	Users   []string
}

// Verify interface compliance
var _ permission.Authorizer = (*MockAuthorizer)(nil)

func NewMockAuthorizer() *MockAuthorizer {
	return &MockAuthorizer{Checker: NewMockChecker()}
}

func (m *MockAuthorizer) ForUser(userID string) permission.Checker {
	m.Users = append(m.Users, userID)
	return m.Checker
}
