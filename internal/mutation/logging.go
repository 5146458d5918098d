package mutation

import "github.com/ecovision/mantaview/internal/logger"

// GetLogger returns the mutation module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mutation")
}
