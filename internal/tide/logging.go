package tide

import "github.com/ecovision/mantaview/internal/logger"

// GetLogger returns the tide module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("tide")
}
