package dataset

import "github.com/ecovision/mantaview/internal/logger"

// GetLogger returns the dataset module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("dataset")
}
