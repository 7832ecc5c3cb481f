package processor

import (
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/roster-import-api/internal/models"
)

// Cache kinds. Each kind documents the scoping parts of its key.
const (
	kindOrganization = "organization" // name
	kindRole         = "role"         // organization id, name
	kindSchool       = "school"       // organization id, name
	kindClass        = "class"        // organization id, school id, name
)

// Cache memoizes parent entities resolved during one import run. Entries
// never expire: referenced parents are assumed stable for the run, and the
// cache is dropped with it. Only successful lookups are stored, so a row
// naming a missing parent never hides a later correct lookup.
type Cache struct {
	c      *cache.Cache
	hits   int
	misses int
}

// NewCache creates an empty cache without a cleanup janitor
func NewCache() *Cache {
	return &Cache{c: cache.New(cache.NoExpiration, 0)}
}

func cacheKey(kind string, parts ...string) string {
	return kind + "\x1f" + strings.Join(parts, "\x1f")
}

func (c *Cache) get(kind string, parts ...string) (interface{}, bool) {
	v, ok := c.c.Get(cacheKey(kind, parts...))
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

func (c *Cache) set(v interface{}, kind string, parts ...string) {
	c.c.Set(cacheKey(kind, parts...), v, cache.NoExpiration)
}

// Organization returns the cached organization named name
func (c *Cache) Organization(name string) (*models.Organization, bool) {
	v, ok := c.get(kindOrganization, name)
	if !ok {
		return nil, false
	}
	return v.(*models.Organization), true
}

// SetOrganization stores a validated organization
func (c *Cache) SetOrganization(org *models.Organization) {
	c.set(org, kindOrganization, org.Name)
}

// Role returns the cached role name as resolved for organizationID
func (c *Cache) Role(organizationID, name string) (*models.Role, bool) {
	v, ok := c.get(kindRole, organizationID, name)
	if !ok {
		return nil, false
	}
	return v.(*models.Role), true
}

// SetRole stores a role resolved for organizationID. System roles are
// stored per organization too, since an organization role of the same name
// takes precedence.
func (c *Cache) SetRole(organizationID, name string, role *models.Role) {
	c.set(role, kindRole, organizationID, name)
}

// School returns the cached school name in organizationID
func (c *Cache) School(organizationID, name string) (*models.School, bool) {
	v, ok := c.get(kindSchool, organizationID, name)
	if !ok {
		return nil, false
	}
	return v.(*models.School), true
}

// SetSchool stores a validated school under its owning organization
func (c *Cache) SetSchool(school *models.School) {
	c.set(school, kindSchool, school.OrganizationID, school.Name)
}

// Class returns the cached class name in organizationID, looked up within
// schoolID ("" when the row named no school)
func (c *Cache) Class(organizationID, schoolID, name string) (*models.Class, bool) {
	v, ok := c.get(kindClass, organizationID, schoolID, name)
	if !ok {
		return nil, false
	}
	return v.(*models.Class), true
}

// SetClass stores a validated class for the school it was resolved in
func (c *Cache) SetClass(schoolID string, class *models.Class) {
	c.set(class, kindClass, class.OrganizationID, schoolID, class.Name)
}

// Len is the number of entries
func (c *Cache) Len() int {
	return c.c.ItemCount()
}

// Stats returns the hit and miss counters
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}
