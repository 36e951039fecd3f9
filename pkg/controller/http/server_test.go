package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	memoryadapter "github.com/m-mizutani/oracle/pkg/adapters/memory"
	server "github.com/m-mizutani/oracle/pkg/controller/http"
	"github.com/m-mizutani/oracle/pkg/domain/model/policy"
	memorydb "github.com/m-mizutani/oracle/pkg/repository/database/memory"
	"github.com/m-mizutani/oracle/pkg/repository/storage"
	"github.com/m-mizutani/oracle/pkg/service/graph"
	healthservice "github.com/m-mizutani/oracle/pkg/service/health"
	"github.com/m-mizutani/oracle/pkg/service/ledger"
	"github.com/m-mizutani/oracle/pkg/service/remediation"
	"github.com/m-mizutani/oracle/pkg/usecase"
)

func newServer(t *testing.T) *server.Server {
	t.Helper()

	p := policy.Default()
	db := memorydb.New()

	tracker, err := graph.New(context.Background(), db)
	gt.NoError(t, err)

	uc := usecase.New(
		usecase.WithAgentRepository(db),
		usecase.WithAlertRepository(db),
		usecase.WithMonitor(healthservice.NewMonitor(p)),
		usecase.WithLedger(ledger.New(db, db, storage.New(memoryadapter.New()))),
		usecase.WithTracker(tracker),
		usecase.WithEngine(remediation.NewEngine(db, remediation.NewRegistry(), p)),
		usecase.WithPolicy(p),
	)

	return server.New(server.WithCoordinator(uc))
}

func request(t *testing.T, s *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		gt.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error, body.Code
}

func TestHealthEndpoint(t *testing.T) {
	rec := request(t, newServer(t), http.MethodGet, "/health", nil)
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, rec.Body.String(), "OK")
}

func TestHeartbeatRegistersAgent(t *testing.T) {
	s := newServer(t)

	rec := request(t, s, http.MethodPost, "/api/agents/batman/heartbeat", nil)
	gt.Equal(t, rec.Code, http.StatusOK)

	rec = request(t, s, http.MethodGet, "/api/agents/batman", nil)
	gt.Equal(t, rec.Code, http.StatusOK)

	var a struct {
		Name           string `json:"name"`
		CurrentVersion string `json:"current_version"`
		Status         string `json:"status"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	gt.Equal(t, a.Name, "batman")
	gt.Equal(t, a.CurrentVersion, "0.0.0")
	gt.Equal(t, a.Status, "unknown")
}

func TestUnknownAgentIsNotFound(t *testing.T) {
	rec := request(t, newServer(t), http.MethodGet, "/api/agents/ghost", nil)
	gt.Equal(t, rec.Code, http.StatusNotFound)

	_, code := decodeError(t, rec)
	gt.Equal(t, code, "ERR_AGENT_NOT_FOUND")
}

func TestRecordMetricAccepted(t *testing.T) {
	s := newServer(t)

	rec := request(t, s, http.MethodPost, "/api/agents/batman/metrics", map[string]any{
		"success":    true,
		"latency_ms": 12,
	})
	gt.Equal(t, rec.Code, http.StatusAccepted)

	rec = request(t, s, http.MethodGet, "/api/agents/batman/health", nil)
	gt.Equal(t, rec.Code, http.StatusOK)

	var assessment struct {
		SampleCount int `json:"sample_count"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assessment))
	gt.Equal(t, assessment.SampleCount, 1)
}

func TestMalformedMetricIsBadRequest(t *testing.T) {
	s := newServer(t)

	rec := request(t, s, http.MethodPost, "/api/agents/batman/metrics", map[string]any{
		"success":    true,
		"latency_ms": -5,
	})
	gt.Equal(t, rec.Code, http.StatusBadRequest)

	message, code := decodeError(t, rec)
	gt.Equal(t, code, "ERR_VALIDATION")
	gt.NotEqual(t, message, "")
}

func TestFirstVersionMustBeMajorOverHTTP(t *testing.T) {
	s := newServer(t)
	request(t, s, http.MethodPost, "/api/agents/flash/heartbeat", nil)

	rec := request(t, s, http.MethodPost, "/api/agents/flash/versions", map[string]any{
		"change_type": "minor",
		"description": "premature",
	})
	gt.Equal(t, rec.Code, http.StatusBadRequest)

	rec = request(t, s, http.MethodPost, "/api/agents/flash/versions", map[string]any{
		"change_type": "major",
		"description": "initial release",
	})
	gt.Equal(t, rec.Code, http.StatusCreated)

	var record struct {
		Version struct {
			Major int `json:"major"`
			Minor int `json:"minor"`
			Patch int `json:"patch"`
		} `json:"version"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	gt.Equal(t, record.Version.Major, 1)
}

func TestUnsafeRollbackIsConflict(t *testing.T) {
	s := newServer(t)
	request(t, s, http.MethodPost, "/api/agents/zatanna/heartbeat", nil)

	for _, change := range []string{"major", "minor", "major"} {
		rec := request(t, s, http.MethodPost, "/api/agents/zatanna/versions", map[string]any{
			"change_type": change,
			"description": fmt.Sprintf("%s release", change),
		})
		gt.Equal(t, rec.Code, http.StatusCreated)
	}

	// 2.0.0 -> 1.1.0 crosses a major boundary
	rec := request(t, s, http.MethodPost, "/api/agents/zatanna/rollback", map[string]any{
		"target_version": "1.1.0",
	})
	gt.Equal(t, rec.Code, http.StatusConflict)

	_, code := decodeError(t, rec)
	gt.Equal(t, code, "ERR_UNSAFE_OPERATION")

	rec = request(t, s, http.MethodPost, "/api/agents/zatanna/rollback", map[string]any{
		"target_version": "1.1.0",
		"force":          true,
	})
	gt.Equal(t, rec.Code, http.StatusOK)
}

func TestDependencyAndCycleEndpoints(t *testing.T) {
	s := newServer(t)

	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}} {
		rec := request(t, s, http.MethodPost, "/api/dependencies", map[string]any{
			"agent":      pair[0],
			"depends_on": pair[1],
		})
		gt.Equal(t, rec.Code, http.StatusCreated)
	}

	rec := request(t, s, http.MethodGet, "/api/cycles", nil)
	gt.Equal(t, rec.Code, http.StatusOK)

	var body struct {
		Count  int        `json:"count"`
		Cycles [][]string `json:"cycles"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	gt.Equal(t, body.Count, 1)
	gt.Equal(t, body.Cycles[0], []string{"a", "b"})
}

func TestSelfDependencyIsBadRequest(t *testing.T) {
	rec := request(t, newServer(t), http.MethodPost, "/api/dependencies", map[string]any{
		"agent":      "a",
		"depends_on": "a",
	})
	gt.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestAnalyzeImpactRequiresNewVersion(t *testing.T) {
	s := newServer(t)
	request(t, s, http.MethodPost, "/api/agents/batman/heartbeat", nil)

	rec := request(t, s, http.MethodGet, "/api/agents/batman/impact", nil)
	gt.Equal(t, rec.Code, http.StatusBadRequest)

	_, code := decodeError(t, rec)
	gt.Equal(t, code, "ERR_REQUIRED_FIELD")

	rec = request(t, s, http.MethodGet, "/api/agents/batman/impact?new_version=1.0.0", nil)
	gt.Equal(t, rec.Code, http.StatusOK)
}

func TestUnknownProposalIsNotFound(t *testing.T) {
	s := newServer(t)

	rec := request(t, s, http.MethodGet, "/api/proposals/nonexistent", nil)
	gt.Equal(t, rec.Code, http.StatusNotFound)

	_, code := decodeError(t, rec)
	gt.Equal(t, code, "ERR_PROPOSAL_NOT_FOUND")
}
