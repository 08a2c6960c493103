package config

import (
	"os"
	"strings"
)

// envFlag reads a boolean switch from the environment.
// Accepts 1/true/yes/y (case-insensitive); anything else is off.
func envFlag(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// sequenceModeFromEnv reads HANDOVER_SEQUENCE_MODE.
//
// Set via env:
// - HANDOVER_SEQUENCE_MODE=strict (default) rejects an employee handover without a confirmed shift collection
// - HANDOVER_SEQUENCE_MODE=permissive lets the first cycle of an employee start without one
func sequenceModeFromEnv() SequenceMode {
	switch SequenceMode(strings.ToLower(strings.TrimSpace(os.Getenv("HANDOVER_SEQUENCE_MODE")))) {
	case SequenceModePermissive:
		return SequenceModePermissive
	default:
		return SequenceModeStrict
	}
}
