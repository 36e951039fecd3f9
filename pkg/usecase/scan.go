package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
	"github.com/m-mizutani/oracle/pkg/domain/model/fleet"
	"github.com/m-mizutani/oracle/pkg/domain/model/health"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
	"github.com/m-mizutani/oracle/pkg/domain/types"
	"github.com/m-mizutani/oracle/pkg/utils/async"
	"github.com/m-mizutani/oracle/pkg/utils/errors"
	"golang.org/x/sync/errgroup"
)

// ScanFleet runs one health pass over every registered agent. Concurrent
// callers are coalesced onto a single in-flight scan and share its
// report. A failing agent is recorded in the report and never stops the
// rest of the pass.
func (uc *Coordinator) ScanFleet(ctx context.Context) (*fleet.ScanReport, error) {
	v, err, shared := uc.scans.Do("fleet-scan", func() (any, error) {
		return uc.scanFleet(ctx)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		ctxlog.From(ctx).Debug("joined in-flight fleet scan")
	}
	return v.(*fleet.ScanReport), nil
}

func (uc *Coordinator) scanFleet(ctx context.Context) (*fleet.ScanReport, error) {
	agents, err := uc.agentRepo.ListAgents(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list agents for scan")
	}

	report := &fleet.ScanReport{
		StartedAt:  uc.now(),
		AgentCount: len(agents),
		Failures:   make(map[string]string),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.policy.Scan.Concurrency)

	for _, a := range agents {
		g.Go(func() error {
			assessment, raised, proposal, scanErr := uc.scanAgent(gctx, a.Name)

			mu.Lock()
			defer mu.Unlock()
			if scanErr != nil {
				// isolate the failure; the scan itself never fails on one agent
				report.Failures[a.Name] = scanErr.Error()
				errors.Handle(gctx, scanErr)
				return nil
			}
			report.Assessments = append(report.Assessments, assessment)
			if raised != nil {
				report.RaisedAlerts = append(report.RaisedAlerts, raised)
			}
			if proposal != nil {
				report.Remediations = append(report.Remediations, proposal)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.FinishedAt = uc.now()

	ctxlog.From(ctx).Info("fleet scan completed",
		"agent_count", report.AgentCount,
		"alerts_raised", len(report.RaisedAlerts),
		"remediations", len(report.Remediations),
		"failures", len(report.Failures),
	)

	return report, nil
}

// scanAgent assesses one agent and, when it needs attention, raises a
// deduplicated alert and optionally attempts a low-risk self-heal
func (uc *Coordinator) scanAgent(ctx context.Context, agentName string) (*health.Assessment, *alert.Alert, *remediation.Proposal, error) {
	assessment, err := uc.monitor.Assess(ctx, agentName)
	if err != nil {
		return nil, nil, nil, err
	}

	if !assessment.Status.NeedsAttention() {
		return assessment, nil, nil, nil
	}

	issue := fmt.Sprintf("health degraded to %s", assessment.Status)
	severity := alert.SeverityWarning
	if assessment.Status == health.StatusCritical {
		severity = alert.SeverityCritical
	}

	raised, err := uc.RaiseAlert(ctx, agentName, issue, severity, map[string]string{
		"success_rate": fmt.Sprintf("%.3f", assessment.SuccessRate),
		"sample_count": fmt.Sprintf("%d", assessment.SampleCount),
		"trend":        assessment.Trend.String(),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var proposal *remediation.Proposal
	if uc.policy.Scan.AutoRemediate {
		proposal, err = uc.Heal(ctx, agentName, issue, nil)
		if err != nil {
			// an unappliable proposal is a finding, not a scan failure
			ctxlog.From(ctx).Warn("auto remediation not applied",
				"agent_name", agentName,
				"error", err.Error(),
			)
			err = nil
		}
	}

	return assessment, raised, proposal, nil
}

// RaiseAlert stores an alert unless an identical signature was raised
// within the cool-down window. Critical alerts are pushed to the
// notifier asynchronously; delivery failure never fails the caller.
func (uc *Coordinator) RaiseAlert(ctx context.Context, agentName, issue string, severity alert.Severity, alertContext map[string]string) (*alert.Alert, error) {
	signature := alert.NewSignature(agentName, issue)

	last, err := uc.alertRepo.LatestAlertBySignature(ctx, signature)
	if err != nil {
		return nil, err
	}
	if last != nil && uc.now().Sub(last.CreatedAt) < uc.policy.Scan.AlertCooldown {
		ctxlog.From(ctx).Debug("alert suppressed by cool-down",
			"signature", signature,
			"last_raised", last.CreatedAt,
		)
		return nil, nil
	}

	a := &alert.Alert{
		ID:        types.NewAlertID(ctx),
		Message:   fmt.Sprintf("%s: %s", agentName, issue),
		Severity:  severity,
		Context:   alertContext,
		Signature: signature,
		CreatedAt: uc.now(),
	}
	if err := uc.alertRepo.PutAlert(ctx, a); err != nil {
		return nil, err
	}

	if severity == alert.SeverityCritical && uc.notifier != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.notifier.NotifyAlert(ctx, a)
		})
	}

	return a, nil
}

// Heal generates a fix proposal for an agent's issue and applies it
// immediately when its risk is low. Higher risk proposals are left
// awaiting approval and reported via the returned proposal.
func (uc *Coordinator) Heal(ctx context.Context, agentName, issue string, issueContext map[string]string) (*remediation.Proposal, error) {
	proposal, err := uc.engine.GenerateProposal(ctx, issue, agentName, issueContext)
	if err != nil {
		return nil, err
	}

	if proposal.Risk != remediation.RiskLow {
		ctxlog.From(ctx).Info("fix proposal awaits approval",
			"proposal_id", proposal.ID,
			"agent_name", agentName,
			"risk", proposal.Risk,
		)
		return proposal, nil
	}

	return uc.engine.Apply(ctx, proposal.ID)
}

// ListAlerts returns stored alerts, most recent first
func (uc *Coordinator) ListAlerts(ctx context.Context, limit int) ([]*alert.Alert, error) {
	return uc.alertRepo.ListAlerts(ctx, limit)
}

// AcknowledgeAlert marks an alert as seen by an operator
func (uc *Coordinator) AcknowledgeAlert(ctx context.Context, id types.AlertID) error {
	return uc.alertRepo.AcknowledgeAlert(ctx, id)
}

// RunScanLoop scans the fleet on the policy interval until the context
// is done. Scan errors are logged and the loop keeps going.
func (uc *Coordinator) RunScanLoop(ctx context.Context) error {
	ticker := time.NewTicker(uc.policy.Scan.Interval)
	defer ticker.Stop()

	ctxlog.From(ctx).Info("starting fleet scan loop",
		"interval", uc.policy.Scan.Interval,
	)

	for {
		select {
		case <-ctx.Done():
			ctxlog.From(ctx).Info("fleet scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := uc.ScanFleet(ctx); err != nil {
				errors.Handle(ctx, err)
			}
		}
	}
}
