package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/permission"
	"github.com/roster-import-api/internal/repository"
	"github.com/roster-import-api/internal/validation"
	"github.com/rs/zerolog"
)

// RowFunc processes a single row. rowNum is 1-based and counted after the
// header; fileErrs holds everything reported so far in the file. Row level
// problems are returned as CSVErrors; a non-nil error aborts the import.
type RowFunc func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error)

// BatchFunc processes consecutive rows, firstRow being the number of batch[0]
type BatchFunc func(ctx context.Context, run *Run, batch []csvreader.Row, firstRow int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error)

// Importer describes how the rows of one entity kind are imported
type Importer struct {
	Entity string
	Header validation.HeaderSpec

	// Passes each run once over the whole file, in order
	Passes []RowFunc

	// Batch, when set, is used instead of Passes and receives at most
	// MaxInputArraySize rows per call
	Batch BatchFunc
}

// Run is the state shared by the processors of one import. It is owned by
// a single import and never shared between files.
type Run struct {
	Tx        repository.Tx
	Perms     permission.Checker
	Cache     *Cache
	Validator *validation.RowValidator
	Catalog   csverror.Catalog
	Config    config.ImportConfig
	Log       zerolog.Logger

	// Pass is the zero-based index of the running pass
	Pass int
	// LastPass is set while the final pass over the file runs
	LastPass bool
	// ErrorsBeforePass counts the file errors reported by earlier passes
	ErrorsBeforePass int

	// natural keys handled earlier in the file
	seen map[string]bool
	// shortcodes claimed earlier in the file, mapped to the claiming key
	claims map[string]string
}

// NewRun prepares the state of one import
func NewRun(tx repository.Tx, perms permission.Checker, validator *validation.RowValidator, catalog csverror.Catalog, cfg config.ImportConfig, log zerolog.Logger) *Run {
	return &Run{
		Tx:        tx,
		Perms:     perms,
		Cache:     NewCache(),
		Validator: validator,
		Catalog:   catalog,
		Config:    cfg,
		Log:       log,
		seen:      make(map[string]bool),
		claims:    make(map[string]string),
	}
}

// BeginPass is called by the orchestrator before each pass
func (r *Run) BeginPass(pass, passes, fileErrs int) {
	r.Pass = pass
	r.LastPass = pass == passes-1
	r.ErrorsBeforePass = fileErrs
}

func (r *Run) newError(code string, rowNum int, column string, params csverror.Params) csverror.CSVError {
	return r.Catalog.New(code, rowNum, column, params)
}

// markSeen records a natural key and reports whether it was already there
func (r *Run) markSeen(kind string, parts ...string) bool {
	key := cacheKey(kind, parts...)
	if r.seen[key] {
		return true
	}
	r.seen[key] = true
	return false
}

func (r *Run) wasSeen(kind string, parts ...string) bool {
	return r.seen[cacheKey(kind, parts...)]
}

// claim reserves a shortcode for owner and reports the previous owner
// when a different one already holds it
func (r *Run) claim(kind, scope, shortcode, owner string) (string, bool) {
	key := cacheKey(kind, scope, shortcode)
	if prev, ok := r.claims[key]; ok && prev != owner {
		return prev, true
	}
	r.claims[key] = owner
	return "", false
}

// Execute runs imp over every row of rows and returns the row errors of
// the file in the order they were found. Writes go through run.Tx; the
// caller decides whether they are kept. A non-nil error aborts the import.
func Execute(ctx context.Context, run *Run, imp Importer, rows *csvreader.Rows) ([]csverror.CSVError, error) {
	var fileErrs []csverror.CSVError

	if imp.Batch != nil {
		run.BeginPass(0, 1, 0)
		err := rows.Batches(run.Config.MaxInputArraySize, func(start int, batch []csvreader.Row) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			errs, err := imp.Batch(ctx, run, batch, start+1, fileErrs)
			if err != nil {
				return err
			}
			fileErrs = append(fileErrs, errs...)
			return nil
		})
		return fileErrs, err
	}

	for pass, fn := range imp.Passes {
		run.BeginPass(pass, len(imp.Passes), len(fileErrs))
		for i := 0; i < rows.Len(); i++ {
			if i%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return fileErrs, err
				}
			}
			errs, err := fn(ctx, run, rows.At(i), i+1, fileErrs)
			if err != nil {
				return fileErrs, fmt.Errorf("row %d: %w", i+1, err)
			}
			fileErrs = append(fileErrs, errs...)
		}
	}
	return fileErrs, nil
}

// checkEvery is how often, in rows, a pass looks for cancellation
const checkEvery = 100

// Importers returns every supported importer keyed by entity
func Importers(l config.Limits) map[string]Importer {
	list := []Importer{
		organizationImporter(l),
		userImporter(l),
		schoolImporter(l),
		classImporter(l),
		gradeImporter(l),
		programImporter(l),
		ageRangeImporter(l),
		categoryImporter(l),
		subcategoryImporter(l),
		subjectImporter(l),
	}
	out := make(map[string]Importer, len(list))
	for _, imp := range list {
		out[imp.Entity] = imp
	}
	return out
}

// Entities lists the supported entity names in order
func Entities() []string {
	names := make([]string, 0, 10)
	for name := range Importers(config.DefaultLimits()) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// headerSpec derives the header rules from a schema: required columns must
// be present, every declared column may appear once, and alternatives
// (email or phone) need one of the group.
func headerSpec(schema validation.Schema) validation.HeaderSpec {
	spec := validation.HeaderSpec{Unique: schema.Columns()}
	grouped := map[string]bool{}
	for _, f := range schema {
		if f.Required {
			spec.Required = append(spec.Required, f.Column)
		}
		if len(f.RequiredUnless) > 0 && !grouped[f.Column] {
			group := append([]string{f.Column}, f.RequiredUnless...)
			for _, c := range group {
				grouped[c] = true
			}
			spec.EitherRequired = append(spec.EitherRequired, group)
		}
	}
	return spec
}

// organization resolves the row's organization, preferring the cache
func (r *Run) organization(ctx context.Context, row csvreader.Row, rowNum int) (*models.Organization, []csverror.CSVError, error) {
	name := row.Get(colOrganizationName)
	if org, ok := r.Cache.Organization(name); ok {
		return org, nil, nil
	}

	org, err := r.Tx.Organizations().FindByName(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find organization: %w", err)
	}
	if org == nil {
		return nil, []csverror.CSVError{r.newError(csverror.CodeNonExistentEntity, rowNum, colOrganizationName, csverror.Params{
			"entity": entityOrganization,
			"name":   name,
		})}, nil
	}

	r.Cache.SetOrganization(org)
	return org, nil, nil
}

// authorize asks the permission oracle whether the acting user may upload
// entity into org. A nil org means an unscoped check.
func (r *Run) authorize(ctx context.Context, org *models.Organization, perm, entity string, rowNum int) ([]csverror.CSVError, error) {
	scope := permission.Scope{}
	if org != nil {
		scope = permission.Organization(org.ID)
	}

	ok, err := r.Perms.Allowed(ctx, scope, perm)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if ok {
		return nil, nil
	}

	if org == nil {
		return []csverror.CSVError{r.newError(csverror.CodeUnauthorizedUploadScope, rowNum, "", csverror.Params{
			"entity": entity,
		})}, nil
	}
	return []csverror.CSVError{r.newError(csverror.CodeUnauthorizedUpload, rowNum, colOrganizationName, csverror.Params{
		"entity":        entity,
		"parent_entity": entityOrganization,
		"parent_name":   org.Name,
	})}, nil
}

// checkParent validates the row's static rules, then resolves and
// authorizes its organization. errs is non-empty when the row can't go on.
func (r *Run) checkParent(ctx context.Context, row csvreader.Row, rowNum int, schema validation.Schema, perm, entity string) (*models.Organization, []csverror.CSVError, error) {
	if errs := r.Validator.Validate(row, rowNum, schema); len(errs) > 0 {
		return nil, errs, nil
	}

	org, errs, err := r.organization(ctx, row, rowNum)
	if err != nil || len(errs) > 0 {
		return nil, errs, err
	}

	errs, err = r.authorize(ctx, org, perm, entity, rowNum)
	if err != nil || len(errs) > 0 {
		return nil, errs, err
	}
	return org, nil, nil
}

func (r *Run) duplicateInOrganization(rowNum int, column, entity, name string, org *models.Organization) csverror.CSVError {
	return r.newError(csverror.CodeDuplicateChildEntity, rowNum, column, csverror.Params{
		"entity":        entity,
		"name":          name,
		"parent_entity": entityOrganization,
		"parent_name":   org.Name,
	})
}

func (r *Run) missingInOrganization(rowNum int, column, entity, name string, org *models.Organization) csverror.CSVError {
	return r.newError(csverror.CodeNonExistentChildEntity, rowNum, column, csverror.Params{
		"entity":        entity,
		"name":          name,
		"parent_entity": entityOrganization,
		"parent_name":   org.Name,
	})
}

// mayWrite is the commit gate: once anything in the file failed the file
// will be rolled back, so no row writes any more.
func mayWrite(fileErrs, rowErrs []csverror.CSVError) bool {
	return len(fileErrs) == 0 && len(rowErrs) == 0
}

func newID() string {
	return uuid.New().String()
}

// newShortcode generates a membership shortcode when the file gives none
func newShortcode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
}
