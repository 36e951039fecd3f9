package agent

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

var (
	// ErrNotFound is returned when a requested agent cannot be found
	ErrNotFound = goerr.New("agent not found", goerr.T(apperr.ErrTagAgentNotFound))

	// ErrAlreadyExists is returned when trying to register an existing agent
	ErrAlreadyExists = goerr.New("agent already exists", goerr.T(apperr.ErrTagConflict))

	// ErrEmptyName is returned when an agent name is empty
	ErrEmptyName = goerr.New("agent name must not be empty", goerr.T(apperr.ErrTagValidation))

	// ErrInvalidName is returned when an agent name is malformed
	ErrInvalidName = goerr.New("invalid agent name", goerr.T(apperr.ErrTagValidation))
)
