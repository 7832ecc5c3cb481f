package mocks

import (
	"context"
	"testing"

	"github.com/roster-import-api/internal/models"
)

func TestMemStore_FindersReturnCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	store.SeedClass(&models.Class{ID: "c1", OrganizationID: "org-1", Name: "Year 1", Status: models.StatusActive})

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Release()

	found, err := tx.Classes().FindByName(ctx, "org-1", "Year 1")
	if err != nil || found == nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	found.StudentIDs = append(found.StudentIDs, "u1")

	again, _ := tx.Classes().FindByName(ctx, "org-1", "Year 1")
	if len(again.StudentIDs) != 0 {
		t.Errorf("Unsaved change leaked into the store: %v", again.StudentIDs)
	}

	if err := tx.Classes().Save(ctx, found); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	found.StudentIDs = append(found.StudentIDs, "u2")

	again, _ = tx.Classes().FindByName(ctx, "org-1", "Year 1")
	if len(again.StudentIDs) != 1 || again.StudentIDs[0] != "u1" {
		t.Errorf("Expected the saved state only, got %v", again.StudentIDs)
	}
}

func TestMemStore_FlatRecordsAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	store.SeedOrganization(&models.Organization{ID: "org-1", Name: "Acme Academy", Status: models.StatusActive})

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Release()

	org, _ := tx.Organizations().FindByName(ctx, "Acme Academy")
	org.Name = "Renamed"

	if got, _ := tx.Organizations().FindByName(ctx, "Acme Academy"); got == nil {
		t.Error("Unsaved rename leaked into the store")
	}
	if got, _ := tx.Users().GetByID(ctx, "missing"); got != nil {
		t.Errorf("Expected nil for a missing user, got %v", got)
	}
}

func TestMemStore_EnrollUnknownClass(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Release()

	if err := tx.Classes().AddStudent(ctx, "missing", "u1"); err == nil {
		t.Error("Expected an error for an unknown class")
	}
}
