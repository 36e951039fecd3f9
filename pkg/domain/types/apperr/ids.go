package apperr

import "github.com/m-mizutani/goerr/v2"

// Agent related errors
var (
	ErrAgentNotFound = goerr.New("agent not found",
		goerr.T(ErrTagAgentNotFound)).ID("ERR_AGENT_NOT_FOUND")

	ErrInvalidAgentName = goerr.New("invalid agent name",
		goerr.T(ErrTagValidation)).ID("ERR_INVALID_AGENT_NAME")
)

// Version ledger related errors
var (
	ErrVersionNotFound = goerr.New("version not found",
		goerr.T(ErrTagVersionNotFound)).ID("ERR_VERSION_NOT_FOUND")

	ErrNotInitialRelease = goerr.New("first version of an agent must be a major release",
		goerr.T(ErrTagValidation)).ID("ERR_NOT_INITIAL_RELEASE")

	ErrVersionConflict = goerr.New("version already exists",
		goerr.T(ErrTagVersionConflict)).ID("ERR_VERSION_CONFLICT")

	ErrBackupMissing = goerr.New("no recoverable backup for target version",
		goerr.T(ErrTagBackupMissing)).ID("ERR_BACKUP_MISSING")

	ErrUnsafeRollback = goerr.New("dangerous rollback requires force",
		goerr.T(ErrTagUnsafeOperation)).ID("ERR_UNSAFE_ROLLBACK")
)

// Dependency graph related errors
var (
	ErrCycleBlocksOrder = goerr.New("dependency cycle prevents a total update order",
		goerr.T(ErrTagDependencyCycle)).ID("ERR_CYCLE_BLOCKS_ORDER")
)

// Remediation related errors
var (
	ErrProposalNotFound = goerr.New("fix proposal not found",
		goerr.T(ErrTagProposalNotFound)).ID("ERR_PROPOSAL_NOT_FOUND")

	ErrProposalNotApplicable = goerr.New("proposal is not in an applicable state",
		goerr.T(ErrTagUnsafeOperation)).ID("ERR_PROPOSAL_NOT_APPLICABLE")

	ErrApprovalRequired = goerr.New("proposal requires approval before apply",
		goerr.T(ErrTagUnsafeOperation)).ID("ERR_APPROVAL_REQUIRED")

	ErrProposalExpired = goerr.New("fix proposal has expired",
		goerr.T(ErrTagConflict)).ID("ERR_PROPOSAL_EXPIRED")

	ErrNoRemediationHandler = goerr.New("no remediation handler",
		goerr.T(ErrTagNoHandler)).ID("ERR_NO_REMEDIATION_HANDLER")

	ErrRemediationFailed = goerr.New("remediation apply failed",
		goerr.T(ErrTagRemediationFailed)).ID("ERR_REMEDIATION_FAILED")

	ErrRemediationTimeout = goerr.New("remediation handler timed out",
		goerr.T(ErrTagRemediationFailed), goerr.T(ErrTagTimeout)).ID("ERR_REMEDIATION_TIMEOUT")
)
