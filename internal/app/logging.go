package app

import "github.com/ecovision/mantaview/internal/logger"

// GetLogger returns the main module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("main")
}
