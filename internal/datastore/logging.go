package datastore

import "github.com/ecovision/mantaview/internal/logger"

// GetLogger returns the audit module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("audit")
}
