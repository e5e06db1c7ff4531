package srv

import "context"

// cleanupService runs a function at shutdown and nothing else. It lets a
// resource like a database handle ride the same lifecycle as real services.
type cleanupService struct {
	cleanup func() error
}

func (c *cleanupService) Start(context.Context) error {
	return nil
}

func (c *cleanupService) Shutdown(context.Context) error {
	if c.cleanup == nil {
		return nil
	}
	return c.cleanup()
}

// NewCleanup wraps fn as a shutdown-only Service.
func NewCleanup(fn func() error) Service {
	return &cleanupService{cleanup: fn}
}
