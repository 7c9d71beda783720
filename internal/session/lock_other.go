//go:build !unix && !windows

package session

// lockFile has no cross-process lock on this platform; the in-process mutex
// in FileStorage still serialises writers sharing one FileStorage.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
