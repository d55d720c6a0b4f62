package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"thittam1hub-backend/pkg/models"
)

// Notifier receives workflow events. Delivery failures are logged, never
// surfaced: a lost notification must not fail the operation that produced it.
type Notifier interface {
	DelegationCreated(item *models.DelegatedItem)
	DelegationDecided(item *models.DelegatedItem)
	DelegationCompleted(item *models.DelegatedItem)
	ExtensionRequested(req *models.DeadlineExtensionRequest)
	ExtensionDecided(req *models.DeadlineExtensionRequest)
	BudgetRequested(req *models.BudgetRequest)
	BudgetReviewed(req *models.BudgetRequest)
}

// LogNotifier prints events to stdout. It is the default when no webhook URL
// is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) DelegationCreated(item *models.DelegatedItem) {
	fmt.Printf("🔔 Delegation created: %s -> %s (%s)\n", item.SourceWorkspaceID, item.TargetWorkspaceID, item.Title)
}

func (n *LogNotifier) DelegationDecided(item *models.DelegatedItem) {
	fmt.Printf("🔔 Delegation %s: %s\n", item.Status, item.Title)
}

func (n *LogNotifier) DelegationCompleted(item *models.DelegatedItem) {
	fmt.Printf("🔔 Delegation completed: %s\n", item.Title)
}

func (n *LogNotifier) ExtensionRequested(req *models.DeadlineExtensionRequest) {
	fmt.Printf("🔔 Extension requested for item %s until %s\n", req.DelegatedItemID, req.RequestedDueDate.Format("2006-01-02"))
}

func (n *LogNotifier) ExtensionDecided(req *models.DeadlineExtensionRequest) {
	fmt.Printf("🔔 Extension %s for item %s\n", req.Status, req.DelegatedItemID)
}

func (n *LogNotifier) BudgetRequested(req *models.BudgetRequest) {
	fmt.Printf("🔔 Budget request: %d from %s to %s\n", req.RequestedAmount, req.RequestingWorkspaceID, req.TargetWorkspaceID)
}

func (n *LogNotifier) BudgetReviewed(req *models.BudgetRequest) {
	fmt.Printf("🔔 Budget request %s: %d for %s\n", req.Status, req.RequestedAmount, req.RequestingWorkspaceID)
}

// WebhookNotifier POSTs events to an external endpoint. Posts run in a
// goroutine with a short timeout so slow receivers never block a request.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type webhookEvent struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

func (n *WebhookNotifier) post(event string, payload interface{}) {
	go func() {
		body, err := json.Marshal(webhookEvent{
			Event:     event,
			Timestamp: time.Now().UTC(),
			Payload:   payload,
		})
		if err != nil {
			fmt.Printf("[warn] notify: failed to marshal %s event: %v\n", event, err)
			return
		}

		resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("[warn] notify: failed to deliver %s event: %v\n", event, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			fmt.Printf("[warn] notify: %s event returned status %d\n", event, resp.StatusCode)
		}
	}()
}

func (n *WebhookNotifier) DelegationCreated(item *models.DelegatedItem) {
	n.post("delegation.created", item)
}

func (n *WebhookNotifier) DelegationDecided(item *models.DelegatedItem) {
	n.post("delegation.decided", item)
}

func (n *WebhookNotifier) DelegationCompleted(item *models.DelegatedItem) {
	n.post("delegation.completed", item)
}

func (n *WebhookNotifier) ExtensionRequested(req *models.DeadlineExtensionRequest) {
	n.post("extension.requested", req)
}

func (n *WebhookNotifier) ExtensionDecided(req *models.DeadlineExtensionRequest) {
	n.post("extension.decided", req)
}

func (n *WebhookNotifier) BudgetRequested(req *models.BudgetRequest) {
	n.post("budget.requested", req)
}

func (n *WebhookNotifier) BudgetReviewed(req *models.BudgetRequest) {
	n.post("budget.reviewed", req)
}

// ForConfig picks the webhook notifier when a URL is configured, the log
// notifier otherwise.
func ForConfig(webhookURL string) Notifier {
	if webhookURL != "" {
		return NewWebhookNotifier(webhookURL)
	}
	return NewLogNotifier()
}
