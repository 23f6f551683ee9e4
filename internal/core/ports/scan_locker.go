package ports

import "context"

// ScanLocker serializes prediction computation for one scan across instances.
// The returned release func must be called exactly once.
type ScanLocker interface {
	Lock(ctx context.Context, scanID uint) (release func(), err error)
}
