package session

import "github.com/ecovision/mantaview/internal/logger"

// GetLogger returns the session module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("session")
}
