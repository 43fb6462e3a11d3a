package storage

import (
	"context"
	"errors"
	"testing"
)

func TestFileRepo_Upsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewFileRepo(db)

	file := &FileRecord{TenantID: "t1", FileName: "faq.md", Title: "FAQ"}
	if err := repo.Upsert(ctx, file); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if file.ID == "" {
		t.Fatal("Upsert() did not assign an ID")
	}
	if file.Status != FileStatusPending {
		t.Errorf("Status = %q, want %q", file.Status, FileStatusPending)
	}

	again := &FileRecord{TenantID: "t1", FileName: "faq.md", Title: "FAQ v2", Status: FileStatusReady}
	if err := repo.Upsert(ctx, again); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}
	if again.ID != file.ID {
		t.Errorf("Upsert() changed ID from %s to %s", file.ID, again.ID)
	}

	got, err := repo.GetByName(ctx, "t1", "faq.md")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.Title != "FAQ v2" || got.Status != FileStatusReady {
		t.Errorf("GetByName() = %+v, want updated title and ready status", got)
	}

	// Same name under another tenant is a different file.
	other := &FileRecord{TenantID: "t2", FileName: "faq.md"}
	if err := repo.Upsert(ctx, other); err != nil {
		t.Fatalf("Upsert() other tenant error = %v", err)
	}
	if other.ID == file.ID {
		t.Error("files of different tenants share an ID")
	}
}

func TestFileRepo_SetStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewFileRepo(db)

	file := &FileRecord{TenantID: "t1", FileName: "a.md"}
	if err := repo.Upsert(ctx, file); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := repo.SetStatus(ctx, file.ID, FileStatusFailed); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	got, err := repo.GetByName(ctx, "t1", "a.md")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.Status != FileStatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, FileStatusFailed)
	}

	if err := repo.SetStatus(ctx, "missing", FileStatusReady); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStatus() missing file error = %v, want ErrNotFound", err)
	}
}

func TestSourceRepo_GetOrCreateByURL(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewSourceRepo(db)

	first, err := repo.GetOrCreateByURL(ctx, "t1", "https://example.com", "Example")
	if err != nil {
		t.Fatalf("GetOrCreateByURL() error = %v", err)
	}
	second, err := repo.GetOrCreateByURL(ctx, "t1", "https://example.com", "Renamed")
	if err != nil {
		t.Fatalf("GetOrCreateByURL() second call error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("GetOrCreateByURL() returned different IDs %s and %s", first.ID, second.ID)
	}
	if second.Title != "Example" {
		t.Errorf("Title = %q, want the original title", second.Title)
	}
}
