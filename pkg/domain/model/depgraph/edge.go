package depgraph

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// Relation is the kind of a dependency edge
type Relation string

const (
	RelationRequires   Relation = "requires"
	RelationRecommends Relation = "recommends"
	RelationConflicts  Relation = "conflicts"
	RelationEnhances   Relation = "enhances"
)

// IsValid checks if the relation is valid
func (r Relation) IsValid() bool {
	switch r {
	case RelationRequires, RelationRecommends, RelationConflicts, RelationEnhances:
		return true
	default:
		return false
	}
}

// String returns the string representation of the relation
func (r Relation) String() string {
	return string(r)
}

// Edge is a directed dependency: Agent depends on DependsOn.
// Edges are upserted idempotently keyed by (agent, depends_on).
type Edge struct {
	Agent      string    `json:"agent"`
	DependsOn  string    `json:"depends_on"`
	Constraint string    `json:"constraint"`
	Relation   Relation  `json:"relation"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate rejects malformed edges
func (e *Edge) Validate() error {
	if e.Agent == "" || e.DependsOn == "" {
		return goerr.New("dependency edge requires both agent and depends_on",
			goerr.T(apperr.ErrTagValidation),
			goerr.V("agent", e.Agent), goerr.V("depends_on", e.DependsOn))
	}
	if e.Agent == e.DependsOn {
		return goerr.New("agent cannot depend on itself",
			goerr.T(apperr.ErrTagValidation), goerr.V("agent", e.Agent))
	}
	if !e.Relation.IsValid() {
		return goerr.New("invalid dependency relation",
			goerr.T(apperr.ErrTagValidation), goerr.V("relation", e.Relation))
	}
	return nil
}
