package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/cli/config"
	server "github.com/m-mizutani/oracle/pkg/controller/http"
	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/repository/database/firestore"
	memorydb "github.com/m-mizutani/oracle/pkg/repository/database/memory"
	"github.com/m-mizutani/oracle/pkg/repository/storage"
	"github.com/m-mizutani/oracle/pkg/service/graph"
	healthservice "github.com/m-mizutani/oracle/pkg/service/health"
	"github.com/m-mizutani/oracle/pkg/service/ledger"
	"github.com/m-mizutani/oracle/pkg/service/remediation"
	"github.com/m-mizutani/oracle/pkg/usecase"
	"github.com/m-mizutani/oracle/pkg/utils/errors"
	"github.com/urfave/cli/v3"
)

// repositories is the full persistence surface one database client provides
type repositories interface {
	interfaces.AgentRepository
	interfaces.VersionRepository
	interfaces.DependencyRepository
	interfaces.ProposalRepository
	interfaces.AlertRepository
}

func cmdServe() *cli.Command {
	var (
		addr         string
		firestoreCfg config.Firestore
		storageCfg   config.Storage
		policyCfg    config.Policy
		slackCfg     config.Slack
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Sources:     cli.EnvVars("ORACLE_ADDR"),
			Usage:       "Listen address (default: 127.0.0.1:8080)",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
	}
	flags = append(flags, firestoreCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the fleet supervisor server",
		Flags:   flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := ctxlog.From(ctx)
			logger.Info("starting server",
				"addr", addr,
				"slack", slackCfg,
			)

			uc, cleanup, err := buildCoordinator(ctx, &firestoreCfg, &storageCfg, &policyCfg, &slackCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// The scan loop runs beside the server and stops with it
			loopCtx, cancelLoop := context.WithCancel(ctx)
			defer cancelLoop()
			go func() {
				if err := uc.RunScanLoop(loopCtx); err != nil && err != context.Canceled {
					errors.Handle(loopCtx, err)
				}
			}()

			httpServer := http.Server{
				Addr:              addr,
				Handler:           server.New(server.WithCoordinator(uc)),
				ReadTimeout:       30 * time.Second,
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext: func(l net.Listener) context.Context {
					return ctx
				},
			}

			errCh := make(chan error, 1)
			go func() {
				defer close(errCh)
				ctxlog.From(ctx).Info("server started", "addr", addr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				ctxlog.From(ctx).Info("shutting down server...")
				cancelLoop()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			}
		},
	}
}

// buildCoordinator wires repositories, services and the coordinator from
// configuration. The returned cleanup releases all held clients.
func buildCoordinator(ctx context.Context, firestoreCfg *config.Firestore, storageCfg *config.Storage, policyCfg *config.Policy, slackCfg *config.Slack) (*usecase.Coordinator, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	p, err := policyCfg.Configure()
	if err != nil {
		return nil, nil, err
	}

	var repo repositories
	if firestoreCfg.IsValid() {
		fsClient, err := firestore.New(ctx, firestoreCfg.ProjectID, firestoreCfg.DatabaseID)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = fsClient.Close() })
		repo = fsClient
	} else {
		ctxlog.From(ctx).Warn("no firestore project configured; using in-memory database")
		repo = memorydb.New()
	}

	if err := storageCfg.Validate(); err != nil {
		cleanup()
		return nil, nil, err
	}
	adapter, adapterCleanup, err := storageCfg.CreateAdapter(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if adapterCleanup != nil {
		cleanups = append(cleanups, adapterCleanup)
	}

	notifier, err := slackCfg.Configure()
	if err != nil {
		cleanup()
		return nil, nil, goerr.Wrap(err, "failed to configure slack notifier")
	}

	tracker, err := graph.New(ctx, repo)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	uc := usecase.New(
		usecase.WithAgentRepository(repo),
		usecase.WithAlertRepository(repo),
		usecase.WithMonitor(healthservice.NewMonitor(p)),
		usecase.WithLedger(ledger.New(repo, repo, storage.New(adapter))),
		usecase.WithTracker(tracker),
		usecase.WithEngine(remediation.NewEngine(repo, remediation.NewRegistry(), p)),
		usecase.WithNotifier(notifier),
		usecase.WithPolicy(p),
	)

	return uc, cleanup, nil
}
