// Package delegation implements cross-workspace task handoff: an ancestor
// workspace delegates an item to a strict descendant, the descendant works it
// through an explicit state machine, and completion can mirror back onto a
// source task.
package delegation

import (
	"fmt"
	"time"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/authz"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/hierarchy"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/notify"
)

// Engine coordinates delegated item lifecycle and deadline extensions.
type Engine struct {
	db       database.DatabaseInterface
	authz    *authz.Engine
	notifier notify.Notifier
}

func NewEngine(db database.DatabaseInterface, az *authz.Engine, notifier notify.Notifier) *Engine {
	return &Engine{db: db, authz: az, notifier: notifier}
}

// DelegateInput describes a new delegated item.
type DelegateInput struct {
	SourceWorkspaceID string
	TargetWorkspaceID string
	Title             string
	Description       string
	DueDate           time.Time
	SyncToSource      bool
}

// Delegate creates a delegated item from source to target. The actor needs
// assign_tasks in the source workspace, and the target must be a strict
// descendant of the source within the same event tree. With SyncToSource set,
// a mirror task is created in the source workspace so completion can be
// reflected there.
func (e *Engine) Delegate(userID string, in DelegateInput) (*models.DelegatedItem, error) {
	if _, err := e.authz.Authorize(userID, in.SourceWorkspaceID, models.CapAssignTasks); err != nil {
		return nil, err
	}

	source, err := e.db.GetWorkspace(in.SourceWorkspaceID)
	if err != nil {
		return nil, err
	}

	tree, err := e.loadTree(source.EventID)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.Get(in.TargetWorkspaceID); !ok {
		return nil, apperr.New(apperr.KindNotADescendant,
			"workspace %s is not in the same event tree as %s", in.TargetWorkspaceID, in.SourceWorkspaceID)
	}
	isDesc, err := tree.IsDescendant(in.TargetWorkspaceID, in.SourceWorkspaceID)
	if err != nil {
		return nil, err
	}
	if !isDesc {
		return nil, apperr.New(apperr.KindNotADescendant,
			"workspace %s is not a descendant of %s", in.TargetWorkspaceID, in.SourceWorkspaceID)
	}

	item := &models.DelegatedItem{
		SourceWorkspaceID: in.SourceWorkspaceID,
		TargetWorkspaceID: in.TargetWorkspaceID,
		Title:             in.Title,
		Description:       in.Description,
		DueDate:           in.DueDate,
		Status:            models.DelegationPendingAccept,
		IsSynced:          in.SyncToSource,
		CreatedBy:         userID,
	}

	if in.SyncToSource {
		mirror := &models.Task{
			WorkspaceID: in.SourceWorkspaceID,
			Title:       in.Title,
			Description: in.Description,
			Status:      models.TaskOpen,
			DueDate:     in.DueDate,
		}
		if err := e.db.CreateTask(mirror); err != nil {
			return nil, fmt.Errorf("failed to create mirror task: %w", err)
		}
		item.SourceTaskID = &mirror.ID
	}

	if err := e.db.CreateDelegatedItem(item); err != nil {
		return nil, err
	}

	e.notifier.DelegationCreated(item)
	return item, nil
}

// Decide accepts or rejects an item. Acceptance is only valid from
// PENDING_ACCEPT; rejection is valid from PENDING_ACCEPT or ACCEPTED, so a
// target workspace can still back out before starting work. The actor needs
// edit_tasks in the target workspace. The conditional update is the only
// transition guard, so a racing decision loses and gets FORBIDDEN_TRANSITION.
func (e *Engine) Decide(userID, itemID string, accept bool) (*models.DelegatedItem, error) {
	item, err := e.db.GetDelegatedItem(itemID)
	if err != nil {
		return nil, err
	}

	if _, err := e.authz.Authorize(userID, item.TargetWorkspaceID, models.CapEditTasks); err != nil {
		return nil, err
	}

	next := models.DelegationAccepted
	if !accept {
		next = models.DelegationRejected
	}

	ok, err := e.db.UpdateDelegatedItemStatusIf(itemID, models.DelegationPendingAccept, next)
	if err != nil {
		return nil, err
	}
	if !ok && !accept {
		ok, err = e.db.UpdateDelegatedItemStatusIf(itemID, models.DelegationAccepted, next)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, apperr.New(apperr.KindForbiddenTransition,
			"delegated item %s can no longer be accepted or rejected", itemID)
	}

	item.Status = next
	e.notifier.DelegationDecided(item)
	return item, nil
}

// Advance moves an item forward: ACCEPTED -> IN_PROGRESS or IN_PROGRESS ->
// COMPLETED. Any target-workspace member may advance; other transitions fail
// with FORBIDDEN_TRANSITION. Completing a synced item mirrors completion onto
// the source task; the mirror write failing fails the whole call so the
// caller can retry.
func (e *Engine) Advance(userID, itemID string, next models.DelegationStatus) (*models.DelegatedItem, error) {
	item, err := e.db.GetDelegatedItem(itemID)
	if err != nil {
		return nil, err
	}

	if _, err := e.authz.MemberRole(userID, item.TargetWorkspaceID); err != nil {
		return nil, err
	}

	var expected models.DelegationStatus
	switch next {
	case models.DelegationInProgress:
		expected = models.DelegationAccepted
	case models.DelegationCompleted:
		expected = models.DelegationInProgress
	default:
		return nil, apperr.New(apperr.KindForbiddenTransition,
			"cannot advance delegated item to %s", next)
	}

	ok, err := e.db.UpdateDelegatedItemStatusIf(itemID, expected, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindForbiddenTransition,
			"delegated item %s is not in state %s", itemID, expected)
	}

	item.Status = next

	if next == models.DelegationCompleted {
		if item.IsSynced && item.SourceTaskID != nil {
			if err := e.db.UpdateTaskStatus(*item.SourceTaskID, models.TaskCompleted); err != nil {
				return nil, fmt.Errorf("failed to sync completion to source task: %w", err)
			}
		}
		e.notifier.DelegationCompleted(item)
	}

	return item, nil
}

// UpdateFromSource propagates title, description and due date changes from
// the source side onto the delegated item. Sync runs source -> target for
// details and target -> source for completion, never the other way.
func (e *Engine) UpdateFromSource(userID, itemID, title, description string, dueDate time.Time) (*models.DelegatedItem, error) {
	item, err := e.db.GetDelegatedItem(itemID)
	if err != nil {
		return nil, err
	}

	if _, err := e.authz.Authorize(userID, item.SourceWorkspaceID, models.CapEditTasks); err != nil {
		return nil, err
	}

	if err := e.db.UpdateDelegatedItemDetails(itemID, title, description, dueDate); err != nil {
		return nil, err
	}

	item.Title = title
	item.Description = description
	item.DueDate = dueDate
	return item, nil
}

// Get returns an item visible to members of either endpoint workspace.
func (e *Engine) Get(userID, itemID string) (*models.DelegatedItem, error) {
	item, err := e.db.GetDelegatedItem(itemID)
	if err != nil {
		return nil, err
	}
	if err := e.requireEitherSide(userID, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListForWorkspace returns items where the workspace is source or target.
// The caller must be a member.
func (e *Engine) ListForWorkspace(userID, workspaceID string) ([]models.DelegatedItem, error) {
	if _, err := e.authz.MemberRole(userID, workspaceID); err != nil {
		return nil, err
	}

	outgoing, err := e.db.ListDelegatedItemsBySource(workspaceID)
	if err != nil {
		return nil, err
	}
	incoming, err := e.db.ListDelegatedItemsByTarget(workspaceID)
	if err != nil {
		return nil, err
	}
	return append(outgoing, incoming...), nil
}

// RequestExtension opens a deadline extension request on behalf of a target
// workspace member. Only one request per item may be open; a second one fails
// with EXTENSION_ALREADY_PENDING.
func (e *Engine) RequestExtension(userID, itemID string, requestedDueDate time.Time, justification string) (*models.DeadlineExtensionRequest, error) {
	item, err := e.db.GetDelegatedItem(itemID)
	if err != nil {
		return nil, err
	}

	if _, err := e.authz.MemberRole(userID, item.TargetWorkspaceID); err != nil {
		return nil, err
	}

	req := &models.DeadlineExtensionRequest{
		DelegatedItemID:  itemID,
		RequestedDueDate: requestedDueDate,
		Justification:    justification,
		Status:           models.ExtensionPending,
		RequestedBy:      userID,
	}

	created, err := e.db.CreateExtensionRequestIfNonePending(req)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, apperr.New(apperr.KindExtensionAlreadyPending,
			"delegated item %s already has a pending extension request", itemID)
	}

	e.notifier.ExtensionRequested(req)
	return req, nil
}

// ReviewExtension approves or rejects a pending extension request. The
// reviewer needs assign_tasks in the source workspace. Approval moves the
// item's due date to the requested date; either outcome closes the request.
// A request already decided fails with ALREADY_REVIEWED.
func (e *Engine) ReviewExtension(userID, requestID string, approve bool) (*models.DeadlineExtensionRequest, error) {
	req, err := e.db.GetExtensionRequest(requestID)
	if err != nil {
		return nil, err
	}

	item, err := e.db.GetDelegatedItem(req.DelegatedItemID)
	if err != nil {
		return nil, err
	}

	if _, err := e.authz.Authorize(userID, item.SourceWorkspaceID, models.CapAssignTasks); err != nil {
		return nil, err
	}

	status := models.ExtensionApproved
	if !approve {
		status = models.ExtensionRejected
	}

	// the store stamps the decision and, on approval, moves the item's
	// due date in the same guarded operation
	ok, err := e.db.DecideExtensionRequestIfPending(requestID, status, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindAlreadyReviewed,
			"extension request %s has already been reviewed", requestID)
	}

	req.Status = status
	req.ReviewerID = &userID
	e.notifier.ExtensionDecided(req)
	return req, nil
}

// ListExtensions returns all extension requests for an item, visible to
// members of either endpoint.
func (e *Engine) ListExtensions(userID, itemID string) ([]models.DeadlineExtensionRequest, error) {
	item, err := e.db.GetDelegatedItem(itemID)
	if err != nil {
		return nil, err
	}
	if err := e.requireEitherSide(userID, item); err != nil {
		return nil, err
	}
	return e.db.ListExtensionRequestsByItem(itemID)
}

func (e *Engine) requireEitherSide(userID string, item *models.DelegatedItem) error {
	if _, err := e.authz.MemberRole(userID, item.TargetWorkspaceID); err == nil {
		return nil
	}
	if _, err := e.authz.MemberRole(userID, item.SourceWorkspaceID); err == nil {
		return nil
	}
	return apperr.New(apperr.KindNotAMember,
		"user %s is not a member of either endpoint of item %s", userID, item.ID)
}

func (e *Engine) loadTree(eventID string) (*hierarchy.Model, error) {
	workspaces, err := e.db.ListEventWorkspaces(eventID)
	if err != nil {
		return nil, err
	}
	return hierarchy.Build(workspaces), nil
}
