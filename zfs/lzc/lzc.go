// Package lzc binds the subset of libzfs_core used for direct dataset
// manipulation without shelling out to the zfs binary.
//
// The binding is only compiled with cgo and the libzfs_core build tag:
//
//	go build -tags libzfs_core
//
// Other builds still provide the Core interface, but Open returns
// ErrUnavailable.
package lzc

import (
	"fmt"
	"sort"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

var ErrUnavailable = errors.New("libzfs_core support not compiled in (build with cgo and -tags libzfs_core)")

// Core is the capability set of libzfs_core.
// Names are passed to the library verbatim.
type Core interface {
	Create(fsname string, typ DatasetType, props map[string]string) error
	Clone(fsname, origin string, props map[string]string) error
	// Promote returns the name of the conflicting snapshot on EEXIST.
	Promote(fsname string) (conflictingSnapshot string, err error)
	DestroySnaps(snaps []string, deferDestroy bool) error
	Snapshot(snaps []string, props map[string]string) error
	// Bookmark maps bookmark names to the snapshot or bookmark they are created from.
	Bookmark(bookmarks map[string]string) error
	GetBookmarks(fsname string, props []string) (map[string]BookmarkProps, error)
	DestroyBookmarks(bookmarks []string) error
	SnaprangeSpace(firstsnap, lastsnap string) (uint64, error)
	// Hold maps snapshot names to hold tags. cleanupFD < 0 creates permanent holds.
	Hold(holds map[string]string, cleanupFD int) error
	// Release maps snapshot names to the hold tags to release.
	Release(holds map[string][]string) error
	// GetHolds maps hold tags to their creation time in seconds since the epoch.
	GetHolds(snapname string) (map[string]uint64, error)
	Send(snapname, from string, fd uintptr, flags SendFlags) error
	SendResume(snapname, from string, fd uintptr, flags SendFlags, resumeObj, resumeOff uint64) error
	SendSpace(snapname, from string, flags SendFlags) (uint64, error)
	Receive(snapname string, props map[string]string, origin string, opts ReceiveOptions, fd uintptr) error
	ReceiveResumable(snapname string, props map[string]string, origin string, opts ReceiveOptions, fd uintptr) error
	Exists(name string) bool
	// Rollback rolls back to the most recent snapshot and returns its name.
	Rollback(fsname string) (snapshot string, err error)
	RollbackTo(fsname, snapname string) error
	ChannelProgram(pool, program string, limits ChannelProgramLimits, argv []string) (map[string]interface{}, error)
	ChannelProgramNosync(pool, program string, limits ChannelProgramLimits, argv []string) (map[string]interface{}, error)
	Checkpoint(pool string) error
	CheckpointDiscard(pool string) error
	// Close releases the library reference taken by Open.
	Close()
}

// values match enum lzc_dataset_type
type DatasetType int

const (
	DatasetTypeFilesystem DatasetType = 2
	DatasetTypeVolume     DatasetType = 3
)

func (t DatasetType) String() string {
	switch t {
	case DatasetTypeFilesystem:
		return "filesystem"
	case DatasetTypeVolume:
		return "volume"
	default:
		return fmt.Sprintf("DatasetType(%d)", int(t))
	}
}

// values match enum lzc_send_flags
type SendFlags int

const (
	SendEmbedData  SendFlags = 1 << 0
	SendLargeBlock SendFlags = 1 << 1
	SendCompress   SendFlags = 1 << 2
	SendRaw        SendFlags = 1 << 3
	SendSaved      SendFlags = 1 << 4
)

var sendFlagNames = []struct {
	flag SendFlags
	name string
}{
	{SendEmbedData, "embed_data"},
	{SendLargeBlock, "large_block"},
	{SendCompress, "compress"},
	{SendRaw, "raw"},
	{SendSaved, "saved"},
}

func (f SendFlags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	rest := f
	for _, n := range sendFlagNames {
		if f&n.flag != 0 {
			names = append(names, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", int(rest)))
	}
	return strings.Join(names, "|")
}

type ReceiveOptions struct {
	Force bool
	Raw   bool
}

type ChannelProgramLimits struct {
	Instructions uint64
	Memory       uint64
}

// defaults of `zfs program`
var DefaultChannelProgramLimits = ChannelProgramLimits{
	Instructions: 10 * 1000 * 1000,
	Memory:       10 * 1024 * 1024,
}

// BookmarkProps maps requested property names to their values.
type BookmarkProps map[string]uint64

// Error is returned by all Core operations that fail.
type Error struct {
	Op    string
	Errno syscall.Errno
	// Per-name errors reported by batch operations, may be empty.
	Errors map[string]syscall.Errno
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("lzc_%s: %s", e.Op, e.Errno.Error())
	if len(e.Errors) == 0 {
		return msg
	}
	names := make([]string, 0, len(e.Errors))
	for n := range e.Errors {
		names = append(names, n)
	}
	sort.Strings(names)
	details := make([]string, len(names))
	for i, n := range names {
		details[i] = fmt.Sprintf("%s: %s", n, e.Errors[n].Error())
	}
	return msg + " (" + strings.Join(details, ", ") + ")"
}

func (e *Error) Unwrap() error { return e.Errno }

func newError(op string, errno int, errlist map[string]syscall.Errno) error {
	if errno == 0 {
		return nil
	}
	return &Error{Op: op, Errno: syscall.Errno(errno), Errors: errlist}
}
