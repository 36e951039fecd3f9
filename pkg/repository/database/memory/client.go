package memory

import (
	"sync"

	"github.com/m-mizutani/oracle/pkg/domain/model/agent"
	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
	"github.com/m-mizutani/oracle/pkg/domain/model/depgraph"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types"
)

type edgeKey struct {
	agent     string
	dependsOn string
}

// Client is an in-memory implementation of all oracle repositories.
// It is the development and test stand-in for the Firestore client.
type Client struct {
	mu        sync.RWMutex
	agents    map[string]*agent.Agent
	versions  map[string][]*version.Record
	edges     map[edgeKey]*depgraph.Edge
	proposals map[types.ProposalID]*remediation.Proposal
	alerts    []*alert.Alert
	alertByID map[types.AlertID]*alert.Alert
}

// New creates a new in-memory client
func New() *Client {
	return &Client{
		agents:    make(map[string]*agent.Agent),
		versions:  make(map[string][]*version.Record),
		edges:     make(map[edgeKey]*depgraph.Edge),
		proposals: make(map[types.ProposalID]*remediation.Proposal),
		alertByID: make(map[types.AlertID]*alert.Alert),
	}
}
