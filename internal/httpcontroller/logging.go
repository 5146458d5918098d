package httpcontroller

import "github.com/ecovision/mantaview/internal/logger"

// GetLogger returns the logger for API handlers.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

func accessLogger() logger.Logger {
	return logger.Global().Module("access")
}
