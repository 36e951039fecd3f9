package alert

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

var (
	// ErrNotFound is returned when a requested alert cannot be found
	ErrNotFound = goerr.New("alert not found", goerr.T(apperr.ErrTagNotFound))
)
