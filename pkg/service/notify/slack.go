package notify

import (
	"context"
	"sort"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	api "github.com/slack-go/slack"
)

// SlackNotifier posts raised alerts to a Slack channel
type SlackNotifier struct {
	client    *api.Client
	channelID string
}

// NewSlack creates a Slack notifier and verifies the token
func NewSlack(token, channelID string) (*SlackNotifier, error) {
	client := api.New(token)

	if _, err := client.AuthTest(); err != nil {
		return nil, goerr.Wrap(err, "failed to authenticate slack client",
			goerr.T(apperr.ErrTagSlackAPI))
	}

	return &SlackNotifier{
		client:    client,
		channelID: channelID,
	}, nil
}

// Ensure SlackNotifier implements AlertNotifier interface
var _ interfaces.AlertNotifier = (*SlackNotifier)(nil)

var severityColors = map[alert.Severity]string{
	alert.SeverityInfo:     "#2eb886",
	alert.SeverityWarning:  "#daa038",
	alert.SeverityCritical: "#a30200",
}

// NotifyAlert posts one alert as a colored attachment
func (n *SlackNotifier) NotifyAlert(ctx context.Context, a *alert.Alert) error {
	fields := make([]api.AttachmentField, 0, len(a.Context))

	keys := make([]string, 0, len(a.Context))
	for k := range a.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, api.AttachmentField{
			Title: k,
			Value: a.Context[k],
			Short: true,
		})
	}

	attachment := api.Attachment{
		Color:  severityColors[a.Severity],
		Title:  string(a.Severity) + " alert",
		Text:   a.Message,
		Fields: fields,
		Footer: a.Signature,
	}

	_, timestamp, err := n.client.PostMessageContext(
		ctx,
		n.channelID,
		api.MsgOptionAttachments(attachment),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post alert to slack",
			goerr.T(apperr.ErrTagSlackAPI),
			goerr.V("channel", n.channelID),
			goerr.V("alert_id", a.ID))
	}

	ctxlog.From(ctx).Debug("posted alert to slack",
		"channel", n.channelID,
		"timestamp", timestamp,
		"alert_id", a.ID,
	)

	return nil
}
