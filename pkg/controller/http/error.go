package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	"github.com/m-mizutani/oracle/pkg/utils/errors"
	"github.com/m-mizutani/oracle/pkg/utils/safe"
)

// errorResponse is the JSON body every failed request gets. No error
// crosses this boundary as anything but data.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// tagMapping pairs an error tag with an HTTP status and a stable code.
// goerr's tag type is unexported, so it is captured via a type parameter
// inferred from the tag values.
type tagMapping[T any] struct {
	tag    T
	status int
	code   string
}

func mapTag[T any](tag T, status int, code string) tagMapping[T] {
	return tagMapping[T]{tag: tag, status: status, code: code}
}

func mappingList[T any](ms ...tagMapping[T]) []tagMapping[T] {
	return ms
}

// tagMappings resolve an error tag to an HTTP status and a stable code,
// checked in order so the most specific classification wins
var tagMappings = mappingList(
	mapTag(apperr.ErrTagValidation, http.StatusBadRequest, "ERR_VALIDATION"),
	mapTag(apperr.ErrTagInvalidInput, http.StatusBadRequest, "ERR_INVALID_INPUT"),
	mapTag(apperr.ErrTagRequiredField, http.StatusBadRequest, "ERR_REQUIRED_FIELD"),

	mapTag(apperr.ErrTagAgentNotFound, http.StatusNotFound, "ERR_AGENT_NOT_FOUND"),
	mapTag(apperr.ErrTagVersionNotFound, http.StatusNotFound, "ERR_VERSION_NOT_FOUND"),
	mapTag(apperr.ErrTagProposalNotFound, http.StatusNotFound, "ERR_PROPOSAL_NOT_FOUND"),
	mapTag(apperr.ErrTagNotFound, http.StatusNotFound, "ERR_NOT_FOUND"),

	mapTag(apperr.ErrTagBackupMissing, http.StatusPreconditionFailed, "ERR_BACKUP_MISSING"),
	mapTag(apperr.ErrTagUnsafeOperation, http.StatusConflict, "ERR_UNSAFE_OPERATION"),
	mapTag(apperr.ErrTagVersionConflict, http.StatusConflict, "ERR_VERSION_CONFLICT"),
	mapTag(apperr.ErrTagDependencyCycle, http.StatusConflict, "ERR_DEPENDENCY_CYCLE"),
	mapTag(apperr.ErrTagConflict, http.StatusConflict, "ERR_CONFLICT"),

	mapTag(apperr.ErrTagNoHandler, http.StatusBadGateway, "ERR_NO_REMEDIATION_HANDLER"),
	mapTag(apperr.ErrTagRemediationFailed, http.StatusBadGateway, "ERR_REMEDIATION_FAILED"),
	mapTag(apperr.ErrTagSlackAPI, http.StatusBadGateway, "ERR_SLACK_API"),
	mapTag(apperr.ErrTagExternal, http.StatusBadGateway, "ERR_EXTERNAL"),

	mapTag(apperr.ErrTagTimeout, http.StatusGatewayTimeout, "ERR_TIMEOUT"),
)

// classify resolves the HTTP status and stable code for an error
func classify(err error) (int, string) {
	for _, m := range tagMappings {
		if goerr.HasTag(err, m.tag) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "ERR_INTERNAL"
}

// handleError normalizes an error into the JSON error body
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	errors.Handle(r.Context(), err)

	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// internal detail stays in the logs
		message = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body, marshalErr := json.Marshal(errorResponse{
		Error: message,
		Code:  code,
	})
	if marshalErr != nil {
		return
	}
	safe.Write(r.Context(), w, body)
}

// respondJSON writes a success payload
func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body, err := json.Marshal(payload)
	if err != nil {
		errors.Handle(r.Context(), err)
		return
	}
	safe.Write(r.Context(), w, body)
}
