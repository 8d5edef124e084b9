// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"

	"github.com/ManuGH/riskwatch/internal/config"
	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// Ops holds the listen address and shutdown budget of the ops server.
	// An empty listen address disables the server.
	Ops config.OpsConfig

	// OpsHandler serves /healthz, /readyz, /metrics and /model
	OpsHandler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.Ops.Listen != "" && d.OpsHandler == nil {
		return ErrMissingOpsHandler
	}
	return nil
}
