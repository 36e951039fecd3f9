package apperr

import "github.com/m-mizutani/goerr/v2"

// NotFound errors (HTTP 404)
var (
	ErrTagNotFound         = goerr.NewTag("not_found")
	ErrTagAgentNotFound    = goerr.NewTag("agent_not_found")
	ErrTagVersionNotFound  = goerr.NewTag("version_not_found")
	ErrTagProposalNotFound = goerr.NewTag("proposal_not_found")
)

// Validation errors (HTTP 400)
var (
	ErrTagValidation    = goerr.NewTag("validation")
	ErrTagInvalidInput  = goerr.NewTag("invalid_input")
	ErrTagRequiredField = goerr.NewTag("required_field")
)

// Conflict errors (HTTP 409)
var (
	ErrTagConflict        = goerr.NewTag("conflict")
	ErrTagVersionConflict = goerr.NewTag("version_conflict")
	ErrTagDependencyCycle = goerr.NewTag("dependency_cycle")
)

// Integrity errors (HTTP 409/412) - never downgraded or swallowed
var (
	ErrTagBackupMissing   = goerr.NewTag("backup_missing")
	ErrTagUnsafeOperation = goerr.NewTag("unsafe_operation")
)

// Remediation errors (HTTP 502)
var (
	ErrTagRemediationFailed = goerr.NewTag("remediation_failed")
	ErrTagNoHandler         = goerr.NewTag("no_remediation_handler")
)

// External service errors (HTTP 502/503)
var (
	ErrTagExternal  = goerr.NewTag("external")
	ErrTagSlackAPI  = goerr.NewTag("slack_api")
	ErrTagFirestore = goerr.NewTag("firestore")
	ErrTagStorage   = goerr.NewTag("storage")
)

// System errors (HTTP 500)
var (
	ErrTagInternal = goerr.NewTag("internal")
	ErrTagTimeout  = goerr.NewTag("timeout")
)
