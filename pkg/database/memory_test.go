package database

import (
	"testing"
	"time"

	"thittam1hub-backend/pkg/models"
)

func TestDecideExtensionRequestApprovalMovesItemDueDate(t *testing.T) {
	db := NewMemoryDatabase()

	item := &models.DelegatedItem{
		SourceWorkspaceID: "src",
		TargetWorkspaceID: "tgt",
		Title:             "Confirm layout",
		DueDate:           time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Status:            models.DelegationAccepted,
		CreatedBy:         "u1",
	}
	if err := db.CreateDelegatedItem(item); err != nil {
		t.Fatal(err)
	}

	requested := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	req := &models.DeadlineExtensionRequest{
		DelegatedItemID:  item.ID,
		RequestedDueDate: requested,
		Status:           models.ExtensionPending,
		RequestedBy:      "u2",
	}
	if created, err := db.CreateExtensionRequestIfNonePending(req); err != nil || !created {
		t.Fatalf("create request: created=%v err=%v", created, err)
	}

	// one call stamps the decision and moves the due date
	ok, err := db.DecideExtensionRequestIfPending(req.ID, models.ExtensionApproved, "u3")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("pending request should be decidable")
	}

	got, err := db.GetDelegatedItem(item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.DueDate.Equal(requested) {
		t.Errorf("item due date = %v, want %v", got.DueDate, requested)
	}

	stored, err := db.GetExtensionRequest(req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.ExtensionApproved {
		t.Errorf("request status = %s, want APPROVED", stored.Status)
	}

	// guard already spent
	ok, err = db.DecideExtensionRequestIfPending(req.ID, models.ExtensionRejected, "u3")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("decided request must not be decidable again")
	}
}

func TestDecideExtensionRequestRejectionKeepsItemDueDate(t *testing.T) {
	db := NewMemoryDatabase()

	original := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	item := &models.DelegatedItem{
		SourceWorkspaceID: "src",
		TargetWorkspaceID: "tgt",
		Title:             "Confirm layout",
		DueDate:           original,
		Status:            models.DelegationAccepted,
		CreatedBy:         "u1",
	}
	if err := db.CreateDelegatedItem(item); err != nil {
		t.Fatal(err)
	}
	req := &models.DeadlineExtensionRequest{
		DelegatedItemID:  item.ID,
		RequestedDueDate: original.AddDate(0, 1, 0),
		Status:           models.ExtensionPending,
		RequestedBy:      "u2",
	}
	if created, err := db.CreateExtensionRequestIfNonePending(req); err != nil || !created {
		t.Fatalf("create request: created=%v err=%v", created, err)
	}

	if ok, err := db.DecideExtensionRequestIfPending(req.ID, models.ExtensionRejected, "u3"); err != nil || !ok {
		t.Fatalf("reject: ok=%v err=%v", ok, err)
	}

	got, err := db.GetDelegatedItem(item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.DueDate.Equal(original) {
		t.Errorf("rejection moved the due date: %v -> %v", original, got.DueDate)
	}
}
