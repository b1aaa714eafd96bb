//go:build !windows

package screenshot

// DefaultDisplay returns the platform display collaborator.
func DefaultDisplay() Display { return PortableDisplay{} }
