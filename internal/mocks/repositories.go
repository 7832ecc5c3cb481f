package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/repository"
)

// ErrTxDone is returned when a finished transaction is used again
var ErrTxDone = errors.New("transaction already finished")

// memData is one consistent copy of every table
type memData struct {
	orgs          map[string]*models.Organization
	users         map[string]*models.User
	memberships   map[string]*models.Membership // organization id + user id
	roles         map[string]*models.Role
	schools       map[string]*models.School
	schoolMembers map[string]*models.SchoolMembership // school id + user id
	classes       map[string]*models.Class
	grades        map[string]*models.Grade
	programs      map[string]*models.Program
	ageRanges     map[string]*models.AgeRange
	categories    map[string]*models.Category
	subcategories map[string]*models.Subcategory
	subjects      map[string]*models.Subject
}

func newMemData() *memData {
	return &memData{
		orgs:          make(map[string]*models.Organization),
		users:         make(map[string]*models.User),
		memberships:   make(map[string]*models.Membership),
		roles:         make(map[string]*models.Role),
		schools:       make(map[string]*models.School),
		schoolMembers: make(map[string]*models.SchoolMembership),
		classes:       make(map[string]*models.Class),
		grades:        make(map[string]*models.Grade),
		programs:      make(map[string]*models.Program),
		ageRanges:     make(map[string]*models.AgeRange),
		categories:    make(map[string]*models.Category),
		subcategories: make(map[string]*models.Subcategory),
		subjects:      make(map[string]*models.Subject),
	}
}

// clone deep copies every record so a transaction can't leak writes
func (d *memData) clone() *memData {
	cp := newMemData()
	for k, v := range d.orgs {
		cp.orgs[k] = copyOf(v)
	}
	for k, v := range d.users {
		cp.users[k] = copyOf(v)
	}
	for k, v := range d.memberships {
		cp.memberships[k] = v.Clone()
	}
	for k, v := range d.roles {
		cp.roles[k] = copyOf(v)
	}
	for k, v := range d.schools {
		cp.schools[k] = v.Clone()
	}
	for k, v := range d.schoolMembers {
		cp.schoolMembers[k] = copyOf(v)
	}
	for k, v := range d.classes {
		cp.classes[k] = v.Clone()
	}
	for k, v := range d.grades {
		cp.grades[k] = copyOf(v)
	}
	for k, v := range d.programs {
		cp.programs[k] = v.Clone()
	}
	for k, v := range d.ageRanges {
		cp.ageRanges[k] = copyOf(v)
	}
	for k, v := range d.categories {
		cp.categories[k] = v.Clone()
	}
	for k, v := range d.subcategories {
		cp.subcategories[k] = copyOf(v)
	}
	for k, v := range d.subjects {
		cp.subjects[k] = v.Clone()
	}
	return cp
}

// copyOf returns a private copy of a flat record, nil for nil
func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// MemStore is an in-memory implementation of repository.Store. Every
// transaction works on a snapshot taken by Begin; Commit publishes it.
type MemStore struct {
	mu   sync.Mutex
	data *memData

	// BeginError fails Begin when set
	BeginError error
	// Fail makes an operation return the given error, keyed like the
	// Calls counters, e.g. "users.save"
	Fail map[string]error

	Begins    int
	Commits   int
	Rollbacks int
	Releases  int
	// Calls counts repository operations by "<table>.<operation>"
	Calls map[string]int
}

var _ repository.Store = (*MemStore)(nil)

// NewMemStore creates a store holding the seeded system records
func NewMemStore() *MemStore {
	s := &MemStore{
		data:  newMemData(),
		Fail:  make(map[string]error),
		Calls: make(map[string]int),
	}
	for _, name := range []string{
		models.RoleOrganizationAdmin,
		models.RoleSchoolAdmin,
		models.RoleTeacher,
		models.RoleStudent,
		models.RoleParent,
	} {
		s.SeedRole(&models.Role{ID: "role-" + name, Name: name, System: true, Status: models.StatusActive})
	}
	s.SeedGrade(&models.Grade{ID: "grade-none", Name: models.NoneSpecified, System: true, Status: models.StatusActive})
	s.SeedProgram(&models.Program{ID: "program-none", Name: models.NoneSpecified, System: true, Status: models.StatusActive})
	s.SeedSubject(&models.Subject{ID: "subject-none", Name: models.NoneSpecified, System: true, Status: models.StatusActive})
	s.SeedCategory(&models.Category{ID: "category-none", Name: models.NoneSpecified, System: true, Status: models.StatusActive})
	s.SeedSubcategory(&models.Subcategory{ID: "subcategory-none", Name: models.NoneSpecified, System: true, Status: models.StatusActive})
	return s
}

// Begin snapshots the committed data
func (s *MemStore) Begin(ctx context.Context) (repository.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BeginError != nil {
		return nil, s.BeginError
	}
	s.Begins++
	return &memTx{store: s, data: s.data.clone()}, nil
}

func (s *MemStore) call(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls[op]++
	return s.Fail[op]
}

// Seed helpers write committed records directly, bypassing transactions

func (s *MemStore) SeedOrganization(o *models.Organization) { s.data.orgs[o.ID] = o }
func (s *MemStore) SeedUser(u *models.User)                 { s.data.users[u.ID] = u }
func (s *MemStore) SeedRole(r *models.Role)                 { s.data.roles[r.ID] = r }
func (s *MemStore) SeedSchool(sc *models.School)            { s.data.schools[sc.ID] = sc }
func (s *MemStore) SeedClass(c *models.Class)               { s.data.classes[c.ID] = c }
func (s *MemStore) SeedGrade(g *models.Grade)               { s.data.grades[g.ID] = g }
func (s *MemStore) SeedProgram(p *models.Program)           { s.data.programs[p.ID] = p }
func (s *MemStore) SeedAgeRange(a *models.AgeRange)         { s.data.ageRanges[a.ID] = a }
func (s *MemStore) SeedCategory(c *models.Category)         { s.data.categories[c.ID] = c }
func (s *MemStore) SeedSubcategory(sc *models.Subcategory)  { s.data.subcategories[sc.ID] = sc }
func (s *MemStore) SeedSubject(sj *models.Subject)          { s.data.subjects[sj.ID] = sj }

func (s *MemStore) SeedMembership(m *models.Membership) {
	s.data.memberships[m.OrganizationID+"/"+m.UserID] = m
}

// Count returns the number of committed records of a table
func (s *MemStore) Count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.data
	switch table {
	case "organizations":
		return len(d.orgs)
	case "users":
		return len(d.users)
	case "memberships":
		return len(d.memberships)
	case "school_memberships":
		return len(d.schoolMembers)
	case "schools":
		return len(d.schools)
	case "classes":
		return len(d.classes)
	case "grades":
		return len(d.grades)
	case "programs":
		return len(d.programs)
	case "age_ranges":
		return len(d.ageRanges)
	case "categories":
		return len(d.categories)
	case "subcategories":
		return len(d.subcategories)
	case "subjects":
		return len(d.subjects)
	}
	return 0
}

// Organization returns the committed organization named name
func (s *MemStore) Organization(name string) *models.Organization {
	for _, o := range s.data.orgs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// School returns the committed school name of organizationID
func (s *MemStore) School(organizationID, name string) *models.School {
	for _, sc := range s.data.schools {
		if sc.OrganizationID == organizationID && sc.Name == name {
			return sc
		}
	}
	return nil
}

// Class returns the committed class name of organizationID
func (s *MemStore) Class(organizationID, name string) *models.Class {
	for _, c := range s.data.classes {
		if c.OrganizationID == organizationID && c.Name == name {
			return c
		}
	}
	return nil
}

// Grade returns the committed grade name of organizationID
func (s *MemStore) Grade(organizationID, name string) *models.Grade {
	for _, g := range s.data.grades {
		if g.OrganizationID == organizationID && g.Name == name {
			return g
		}
	}
	return nil
}

// Program returns the committed program name of organizationID
func (s *MemStore) Program(organizationID, name string) *models.Program {
	for _, p := range s.data.programs {
		if p.OrganizationID == organizationID && p.Name == name {
			return p
		}
	}
	return nil
}

// Membership returns the committed membership of userID in organizationID
func (s *MemStore) Membership(organizationID, userID string) *models.Membership {
	return s.data.memberships[organizationID+"/"+userID]
}

// UserByEmail returns the committed user with the given email
func (s *MemStore) UserByEmail(email string) *models.User {
	for _, u := range s.data.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// memTx implements repository.Tx over a snapshot
type memTx struct {
	store    *MemStore
	data     *memData
	done     bool
	released bool
}

var _ repository.Tx = (*memTx)(nil)

func (t *memTx) Organizations() repository.OrganizationRepository { return memOrgs{t} }
func (t *memTx) Users() repository.UserRepository                 { return memUsers{t} }
func (t *memTx) Memberships() repository.MembershipRepository     { return memMemberships{t} }
func (t *memTx) Roles() repository.RoleRepository                 { return memRoles{t} }
func (t *memTx) Schools() repository.SchoolRepository             { return memSchools{t} }
func (t *memTx) Classes() repository.ClassRepository              { return memClasses{t} }
func (t *memTx) Grades() repository.GradeRepository               { return memGrades{t} }
func (t *memTx) Programs() repository.ProgramRepository           { return memPrograms{t} }
func (t *memTx) AgeRanges() repository.AgeRangeRepository         { return memAgeRanges{t} }
func (t *memTx) Categories() repository.CategoryRepository        { return memCategories{t} }
func (t *memTx) Subcategories() repository.SubcategoryRepository  { return memSubcategories{t} }
func (t *memTx) Subjects() repository.SubjectRepository           { return memSubjects{t} }

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	if err := t.store.call("tx.commit"); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.done = true
	t.store.data = t.data
	t.store.Commits++
	return nil
}

// Rollback after Commit is a no-op
func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.Rollbacks++
	return nil
}

func (t *memTx) Release() error {
	if t.released {
		return nil
	}
	t.released = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.Releases++
	return nil
}

// visible applies the owner filter of a taxonomy lookup
func visible(orgID, recordOrg string, system bool, vis repository.Visibility) bool {
	if recordOrg == orgID && !system {
		return true
	}
	return vis == repository.OwnedOrSystem && system
}

// better reports whether candidate should replace current under the
// owned-first ordering
func better(currentSystem, candidateSystem bool, currentID, candidateID string) bool {
	if currentSystem != candidateSystem {
		return !candidateSystem
	}
	return candidateID < currentID
}

type memOrgs struct{ t *memTx }

func (r memOrgs) FindByName(ctx context.Context, name string) (*models.Organization, error) {
	if err := r.t.store.call("organizations.find_by_name"); err != nil {
		return nil, err
	}
	for _, o := range r.t.data.orgs {
		if o.Name == name && o.Status.IsActive() {
			return copyOf(o), nil
		}
	}
	return nil, nil
}

func (r memOrgs) FindActiveByOwner(ctx context.Context, userID string) (*models.Organization, error) {
	if err := r.t.store.call("organizations.find_by_owner"); err != nil {
		return nil, err
	}
	for _, o := range r.t.data.orgs {
		if o.OwnerUserID == userID && o.Status.IsActive() {
			return copyOf(o), nil
		}
	}
	return nil, nil
}

func (r memOrgs) Save(ctx context.Context, org *models.Organization) error {
	if err := r.t.store.call("organizations.save"); err != nil {
		return err
	}
	for _, o := range r.t.data.orgs {
		if o.Name == org.Name && o.ID != org.ID {
			return repository.ErrConflict
		}
	}
	r.t.data.orgs[org.ID] = copyOf(org)
	return nil
}

type memUsers struct{ t *memTx }

func (r memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := r.t.store.call("users.get"); err != nil {
		return nil, err
	}
	return copyOf(r.t.data.users[id]), nil
}

func (r memUsers) FindByProfile(ctx context.Context, givenName, familyName, email, phone string) ([]*models.User, error) {
	if err := r.t.store.call("users.find_by_profile"); err != nil {
		return nil, err
	}
	var out []*models.User
	for _, u := range r.t.data.users {
		if u.GivenName != givenName || u.FamilyName != familyName || !u.Status.IsActive() {
			continue
		}
		if (email != "" && u.Email == email) || (email == "" && u.Phone == phone) {
			out = append(out, copyOf(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memUsers) Save(ctx context.Context, user *models.User) error {
	if err := r.t.store.call("users.save"); err != nil {
		return err
	}
	r.t.data.users[user.ID] = copyOf(user)
	return nil
}

type memMemberships struct{ t *memTx }

func (r memMemberships) Get(ctx context.Context, organizationID, userID string) (*models.Membership, error) {
	if err := r.t.store.call("memberships.get"); err != nil {
		return nil, err
	}
	return r.t.data.memberships[organizationID+"/"+userID].Clone(), nil
}

func (r memMemberships) FindByShortcode(ctx context.Context, organizationID, shortcode string) (*models.Membership, error) {
	if err := r.t.store.call("memberships.find_by_shortcode"); err != nil {
		return nil, err
	}
	for _, m := range r.t.data.memberships {
		if m.OrganizationID == organizationID && m.Shortcode == shortcode && m.Status.IsActive() {
			return m.Clone(), nil
		}
	}
	return nil, nil
}

func (r memMemberships) Save(ctx context.Context, m *models.Membership) error {
	if err := r.t.store.call("memberships.save"); err != nil {
		return err
	}
	r.t.data.memberships[m.OrganizationID+"/"+m.UserID] = m.Clone()
	return nil
}

type memRoles struct{ t *memTx }

func (r memRoles) FindByName(ctx context.Context, organizationID, name string) (*models.Role, error) {
	if err := r.t.store.call("roles.find_by_name"); err != nil {
		return nil, err
	}
	var found *models.Role
	for _, role := range r.t.data.roles {
		if role.Name != name || !role.Status.IsActive() || !visible(organizationID, role.OrganizationID, role.System, repository.OwnedOrSystem) {
			continue
		}
		if found == nil || better(found.System, role.System, found.ID, role.ID) {
			found = role
		}
	}
	return copyOf(found), nil
}

type memSchools struct{ t *memTx }

func (r memSchools) FindByName(ctx context.Context, organizationID, name string) (*models.School, error) {
	if err := r.t.store.call("schools.find_by_name"); err != nil {
		return nil, err
	}
	for _, s := range r.t.data.schools {
		if s.OrganizationID == organizationID && s.Name == name && s.Status.IsActive() {
			return s.Clone(), nil
		}
	}
	return nil, nil
}

func (r memSchools) FindByShortcode(ctx context.Context, organizationID, shortcode string) (*models.School, error) {
	if err := r.t.store.call("schools.find_by_shortcode"); err != nil {
		return nil, err
	}
	for _, s := range r.t.data.schools {
		if s.OrganizationID == organizationID && s.Shortcode == shortcode && s.Status.IsActive() {
			return s.Clone(), nil
		}
	}
	return nil, nil
}

func (r memSchools) Save(ctx context.Context, school *models.School) error {
	if err := r.t.store.call("schools.save"); err != nil {
		return err
	}
	r.t.data.schools[school.ID] = school.Clone()
	return nil
}

func (r memSchools) GetMembership(ctx context.Context, schoolID, userID string) (*models.SchoolMembership, error) {
	if err := r.t.store.call("school_memberships.get"); err != nil {
		return nil, err
	}
	return copyOf(r.t.data.schoolMembers[schoolID+"/"+userID]), nil
}

func (r memSchools) SaveMembership(ctx context.Context, m *models.SchoolMembership) error {
	if err := r.t.store.call("school_memberships.save"); err != nil {
		return err
	}
	r.t.data.schoolMembers[m.SchoolID+"/"+m.UserID] = copyOf(m)
	return nil
}

type memClasses struct{ t *memTx }

func (r memClasses) FindByName(ctx context.Context, organizationID, name string) (*models.Class, error) {
	if err := r.t.store.call("classes.find_by_name"); err != nil {
		return nil, err
	}
	for _, c := range r.t.data.classes {
		if c.OrganizationID == organizationID && c.Name == name && c.Status.IsActive() {
			return c.Clone(), nil
		}
	}
	return nil, nil
}

func (r memClasses) FindByShortcode(ctx context.Context, organizationID, shortcode string) (*models.Class, error) {
	if err := r.t.store.call("classes.find_by_shortcode"); err != nil {
		return nil, err
	}
	for _, c := range r.t.data.classes {
		if c.OrganizationID == organizationID && c.Shortcode == shortcode && c.Status.IsActive() {
			return c.Clone(), nil
		}
	}
	return nil, nil
}

func (r memClasses) Save(ctx context.Context, class *models.Class) error {
	if err := r.t.store.call("classes.save"); err != nil {
		return err
	}
	r.t.data.classes[class.ID] = class.Clone()
	return nil
}

func (r memClasses) AddTeacher(ctx context.Context, classID, userID string) error {
	return r.enroll("classes.add_teacher", classID, func(c *models.Class) {
		c.TeacherIDs = models.AddID(c.TeacherIDs, userID)
	})
}

func (r memClasses) AddStudent(ctx context.Context, classID, userID string) error {
	return r.enroll("classes.add_student", classID, func(c *models.Class) {
		c.StudentIDs = models.AddID(c.StudentIDs, userID)
	})
}

func (r memClasses) enroll(op, classID string, add func(*models.Class)) error {
	if err := r.t.store.call(op); err != nil {
		return err
	}
	c, ok := r.t.data.classes[classID]
	if !ok {
		return fmt.Errorf("class %s does not exist", classID)
	}
	add(c)
	return nil
}

type memGrades struct{ t *memTx }

func (r memGrades) FindByName(ctx context.Context, organizationID, name string, vis repository.Visibility) (*models.Grade, error) {
	if err := r.t.store.call("grades.find_by_name"); err != nil {
		return nil, err
	}
	var found *models.Grade
	for _, g := range r.t.data.grades {
		if g.Name != name || !g.Status.IsActive() || !visible(organizationID, g.OrganizationID, g.System, vis) {
			continue
		}
		if found == nil || better(found.System, g.System, found.ID, g.ID) {
			found = g
		}
	}
	return copyOf(found), nil
}

func (r memGrades) Save(ctx context.Context, grade *models.Grade) error {
	if err := r.t.store.call("grades.save"); err != nil {
		return err
	}
	r.t.data.grades[grade.ID] = copyOf(grade)
	return nil
}

type memPrograms struct{ t *memTx }

func (r memPrograms) FindByName(ctx context.Context, organizationID, name string, vis repository.Visibility) (*models.Program, error) {
	if err := r.t.store.call("programs.find_by_name"); err != nil {
		return nil, err
	}
	var found *models.Program
	for _, p := range r.t.data.programs {
		if p.Name != name || !p.Status.IsActive() || !visible(organizationID, p.OrganizationID, p.System, vis) {
			continue
		}
		if found == nil || better(found.System, p.System, found.ID, p.ID) {
			found = p
		}
	}
	return found.Clone(), nil
}

func (r memPrograms) Save(ctx context.Context, program *models.Program) error {
	if err := r.t.store.call("programs.save"); err != nil {
		return err
	}
	r.t.data.programs[program.ID] = program.Clone()
	return nil
}

type memAgeRanges struct{ t *memTx }

func (r memAgeRanges) FindByBounds(ctx context.Context, organizationID string, low, high int, unit string, vis repository.Visibility) (*models.AgeRange, error) {
	if err := r.t.store.call("age_ranges.find_by_bounds"); err != nil {
		return nil, err
	}
	var found *models.AgeRange
	for _, a := range r.t.data.ageRanges {
		if a.LowValue != low || a.HighValue != high || a.Unit != unit || !a.Status.IsActive() {
			continue
		}
		if !visible(organizationID, a.OrganizationID, a.System, vis) {
			continue
		}
		if found == nil || better(found.System, a.System, found.ID, a.ID) {
			found = a
		}
	}
	return copyOf(found), nil
}

func (r memAgeRanges) Save(ctx context.Context, ageRange *models.AgeRange) error {
	if err := r.t.store.call("age_ranges.save"); err != nil {
		return err
	}
	r.t.data.ageRanges[ageRange.ID] = copyOf(ageRange)
	return nil
}

type memCategories struct{ t *memTx }

func (r memCategories) FindByName(ctx context.Context, organizationID, name string, vis repository.Visibility) (*models.Category, error) {
	if err := r.t.store.call("categories.find_by_name"); err != nil {
		return nil, err
	}
	var found *models.Category
	for _, c := range r.t.data.categories {
		if c.Name != name || !c.Status.IsActive() || !visible(organizationID, c.OrganizationID, c.System, vis) {
			continue
		}
		if found == nil || better(found.System, c.System, found.ID, c.ID) {
			found = c
		}
	}
	return found.Clone(), nil
}

func (r memCategories) Save(ctx context.Context, category *models.Category) error {
	if err := r.t.store.call("categories.save"); err != nil {
		return err
	}
	r.t.data.categories[category.ID] = category.Clone()
	return nil
}

type memSubcategories struct{ t *memTx }

func (r memSubcategories) FindByName(ctx context.Context, organizationID, name string, vis repository.Visibility) (*models.Subcategory, error) {
	if err := r.t.store.call("subcategories.find_by_name"); err != nil {
		return nil, err
	}
	var found *models.Subcategory
	for _, s := range r.t.data.subcategories {
		if s.Name != name || !s.Status.IsActive() || !visible(organizationID, s.OrganizationID, s.System, vis) {
			continue
		}
		if found == nil || better(found.System, s.System, found.ID, s.ID) {
			found = s
		}
	}
	return copyOf(found), nil
}

func (r memSubcategories) Save(ctx context.Context, subcategory *models.Subcategory) error {
	if err := r.t.store.call("subcategories.save"); err != nil {
		return err
	}
	r.t.data.subcategories[subcategory.ID] = copyOf(subcategory)
	return nil
}

type memSubjects struct{ t *memTx }

func (r memSubjects) FindByName(ctx context.Context, organizationID, name string, vis repository.Visibility) (*models.Subject, error) {
	if err := r.t.store.call("subjects.find_by_name"); err != nil {
		return nil, err
	}
	var found *models.Subject
	for _, s := range r.t.data.subjects {
		if s.Name != name || !s.Status.IsActive() || !visible(organizationID, s.OrganizationID, s.System, vis) {
			continue
		}
		if found == nil || better(found.System, s.System, found.ID, s.ID) {
			found = s
		}
	}
	return found.Clone(), nil
}

func (r memSubjects) Save(ctx context.Context, subject *models.Subject) error {
	if err := r.t.store.call("subjects.save"); err != nil {
		return err
	}
	r.t.data.subjects[subject.ID] = subject.Clone()
	return nil
}
