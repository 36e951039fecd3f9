package config

import (
	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/service/notify"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	OAuthToken string `masq:"secret"`
	ChannelID  string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack OAuth token for alert notification",
			Sources:     cli.EnvVars("ORACLE_SLACK_OAUTH_TOKEN"),
			Destination: &x.OAuthToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel to receive critical alerts",
			Sources:     cli.EnvVars("ORACLE_SLACK_CHANNEL_ID"),
			Destination: &x.ChannelID,
		},
	}
}

// Enabled reports whether alert notification is configured
func (x *Slack) Enabled() bool {
	return x.OAuthToken != "" && x.ChannelID != ""
}

// Configure builds the Slack alert notifier, or nil when not configured
func (x *Slack) Configure() (interfaces.AlertNotifier, error) {
	if !x.Enabled() {
		return nil, nil
	}
	return notify.NewSlack(x.OAuthToken, x.ChannelID)
}
