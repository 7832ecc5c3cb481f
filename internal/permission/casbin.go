package permission

import (
	"context"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/rs/zerolog"
)

// globalDomain is the casbin domain used for unscoped checks
const globalDomain = "*"

// Enforcer evaluates upload permissions against a casbin RBAC-with-domains
// policy. Domains are organization ids.
type Enforcer struct {
	enforcer *casbin.Enforcer
	log      zerolog.Logger
	mu       sync.RWMutex
}

// NewEnforcer loads the model and policy files
func NewEnforcer(modelPath, policyPath string, log zerolog.Logger) (*Enforcer, error) {
	enf, err := casbin.NewEnforcer(modelPath, fileadapter.NewAdapter(policyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize enforcer: %w", err)
	}
	if err := enf.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	return &Enforcer{enforcer: enf, log: log.With().Str("component", "authz").Logger()}, nil
}

// NewEnforcerFromModel builds an enforcer with an empty in-memory policy
func NewEnforcerFromModel(modelText string, log zerolog.Logger) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize enforcer: %w", err)
	}
	return &Enforcer{enforcer: enf, log: log.With().Str("component", "authz").Logger()}, nil
}

// Grant allows role to perform permission in domain ("*" for every domain)
func (e *Enforcer) Grant(role, domain, permission string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.enforcer.AddPolicy(role, domain, permission)
	return err
}

// Assign gives userID role within organization domain ("*" for every one)
func (e *Enforcer) Assign(userID, role, domain string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.enforcer.AddGroupingPolicy(userID, role, domain)
	return err
}

// Reload re-reads the policy file
func (e *Enforcer) Reload() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("reload policy failed: %w", err)
	}
	return nil
}

func (e *Enforcer) enforce(userID, domain, permission string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ok, err := e.enforcer.Enforce(userID, domain, permission)
	if err != nil {
		return false, fmt.Errorf("enforce failed: %w", err)
	}
	return ok, nil
}

var _ Authorizer = (*Enforcer)(nil)

// ForUser binds the enforcer to an acting user
func (e *Enforcer) ForUser(userID string) Checker {
	return &userChecker{enforcer: e, userID: userID}
}

type userChecker struct {
	enforcer *Enforcer
	userID   string
}

// Allowed requires the permission in every organization of the scope
func (c *userChecker) Allowed(_ context.Context, scope Scope, permission string) (bool, error) {
	domains := scope.OrganizationIDs
	if len(domains) == 0 {
		domains = []string{globalDomain}
	}

	for _, dom := range domains {
		ok, err := c.enforcer.enforce(c.userID, dom, permission)
		if err != nil {
			return false, err
		}
		if !ok {
			c.enforcer.log.Debug().
				Str("user_id", c.userID).
				Str("domain", dom).
				Str("permission", permission).
				Msg("Permission denied")
			return false, nil
		}
	}
	return true, nil
}
