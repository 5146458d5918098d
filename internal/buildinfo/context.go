// Package buildinfo carries build-time metadata separate from user configuration.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata the build did not set.
const UnknownValue = "unknown"

// Context contains build-time metadata injected at startup through -ldflags.
type Context struct {
	Version   string // git tag of the build
	BuildDate string
}

// GetVersion returns the build version or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release is the release identifier reported with telemetry events.
func (c *Context) Release() string {
	return "mantaview@" + c.GetVersion()
}

func (c *Context) String() string {
	return fmt.Sprintf("mantaview %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
