package cli

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/oracle/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

// cmdScan runs a single fleet scan and exits. It is meant for cron-style
// scheduling against the shared Firestore database.
func cmdScan() *cli.Command {
	var (
		firestoreCfg config.Firestore
		storageCfg   config.Storage
		policyCfg    config.Policy
		slackCfg     config.Slack
	)

	var flags []cli.Flag
	flags = append(flags, firestoreCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:  "scan",
		Usage: "Run one fleet health scan and exit",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			uc, cleanup, err := buildCoordinator(ctx, &firestoreCfg, &storageCfg, &policyCfg, &slackCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := uc.ScanFleet(ctx)
			if err != nil {
				return err
			}

			ctxlog.From(ctx).Info("scan finished",
				"agent_count", report.AgentCount,
				"alerts_raised", len(report.RaisedAlerts),
				"remediations", len(report.Remediations),
				"failures", len(report.Failures),
			)
			return nil
		},
	}
}
