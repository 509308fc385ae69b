package utils

import "go.uber.org/zap"

// NewLogger returns the zap logger the pipeline and server share. Debug
// selects the development config (console encoding, debug level); otherwise
// the production config (JSON, info level) is used. Patient identifiers must
// already be anonymized before they reach any log call.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
