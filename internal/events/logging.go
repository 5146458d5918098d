package events

import "github.com/ecovision/mantaview/internal/logger"

// GetLogger returns the events module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("events")
}
