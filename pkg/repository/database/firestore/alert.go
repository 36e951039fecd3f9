package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
	"github.com/m-mizutani/oracle/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Alert Firestore document structure
type alertDoc struct {
	ID           string            `firestore:"id"`
	Message      string            `firestore:"message"`
	Severity     string            `firestore:"severity"`
	Context      map[string]string `firestore:"context"`
	Signature    string            `firestore:"signature"`
	Acknowledged bool              `firestore:"acknowledged"`
	CreatedAt    time.Time         `firestore:"created_at"`
}

func (d *alertDoc) toModel() *alert.Alert {
	return &alert.Alert{
		ID:           types.AlertID(d.ID),
		Message:      d.Message,
		Severity:     alert.Severity(d.Severity),
		Context:      d.Context,
		Signature:    d.Signature,
		Acknowledged: d.Acknowledged,
		CreatedAt:    d.CreatedAt,
	}
}

// PutAlert stores a new alert
func (c *Client) PutAlert(ctx context.Context, a *alert.Alert) error {
	if !a.ID.IsValid() {
		return goerr.New("alert ID is required", goerr.V("alert_id", a.ID))
	}

	doc := &alertDoc{
		ID:           a.ID.String(),
		Message:      a.Message,
		Severity:     a.Severity.String(),
		Context:      a.Context,
		Signature:    a.Signature,
		Acknowledged: a.Acknowledged,
		CreatedAt:    a.CreatedAt,
	}
	if doc.Context == nil {
		doc.Context = map[string]string{}
	}

	if _, err := c.client.Collection(collectionAlerts).Doc(doc.ID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put alert", goerr.V("alert_id", a.ID))
	}

	return nil
}

// GetAlert retrieves an alert by ID
func (c *Client) GetAlert(ctx context.Context, id types.AlertID) (*alert.Alert, error) {
	doc, err := c.client.Collection(collectionAlerts).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(alert.ErrNotFound, "alert not found", goerr.V("alert_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get alert", goerr.V("alert_id", id))
	}

	var d alertDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal alert", goerr.V("alert_id", id))
	}

	return d.toModel(), nil
}

// ListAlerts returns alerts newest first. limit <= 0 returns all.
func (c *Client) ListAlerts(ctx context.Context, limit int) ([]*alert.Alert, error) {
	q := c.client.Collection(collectionAlerts).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var alerts []*alert.Alert
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate alerts")
		}

		var d alertDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal alert")
		}
		alerts = append(alerts, d.toModel())
	}

	return alerts, nil
}

// LatestAlertBySignature returns the most recent alert with the given
// dedupe signature, or nil when none exists
func (c *Client) LatestAlertBySignature(ctx context.Context, signature string) (*alert.Alert, error) {
	iter := c.client.Collection(collectionAlerts).
		Where("signature", "==", signature).
		OrderBy("created_at", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query alert by signature",
			goerr.V("signature", signature))
	}

	var d alertDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal alert")
	}

	return d.toModel(), nil
}

// AcknowledgeAlert marks an alert as acknowledged
func (c *Client) AcknowledgeAlert(ctx context.Context, id types.AlertID) error {
	updates := []firestore.Update{
		{Path: "acknowledged", Value: true},
	}

	if _, err := c.client.Collection(collectionAlerts).Doc(id.String()).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(alert.ErrNotFound, "alert not found", goerr.V("alert_id", id))
		}
		return goerr.Wrap(err, "failed to acknowledge alert", goerr.V("alert_id", id))
	}

	return nil
}
