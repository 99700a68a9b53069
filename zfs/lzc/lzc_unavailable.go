//go:build !(cgo && libzfs_core)

package lzc

// Open always fails in builds without libzfs_core.
func Open() (Core, error) {
	return nil, ErrUnavailable
}
