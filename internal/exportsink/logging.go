package exportsink

import "github.com/ecovision/mantaview/internal/logger"

// GetLogger returns the export module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("export")
}
