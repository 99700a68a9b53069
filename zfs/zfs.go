// Package zfs lists ZFS pools and datasets by running the zpool and zfs
// binaries and parsing their headerless (-H) output.
//
// Every listing call runs exactly one command and keeps its output as a
// frozen snapshot. Iterating a snapshot never re-runs the command, and a
// snapshot may be iterated any number of times.
package zfs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/zrepl/calldown/util/envconst"
	"github.com/zrepl/calldown/zfs/zfscmd"
)

var ZFS_BINARY string = envconst.String("CALLDOWN_ZFS_BINARY", "zfs")
var ZPOOL_BINARY string = envconst.String("CALLDOWN_ZPOOL_BINARY", "zpool")

// ErrCommandStart matches (errors.Is) every *StartError.
var ErrCommandStart = errors.New("cannot start command")

// StartError is returned if the zfs or zpool binary could not be spawned,
// e.g. because it is not installed.
type StartError struct {
	Cmd string
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("cannot start %q: %s", e.Cmd, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

func (e *StartError) Is(target error) bool { return target == ErrCommandStart }

// ZFSError is returned if the command ran but did not exit successfully.
type ZFSError struct {
	Cmd     string
	Stderr  []byte
	WaitErr error
}

func (e *ZFSError) Error() string {
	stderr := strings.TrimSpace(string(e.Stderr))
	if stderr == "" {
		return fmt.Sprintf("%s exited with error: %s", e.Cmd, e.WaitErr)
	}
	return fmt.Sprintf("%s exited with error: %s: %s", e.Cmd, e.WaitErr, stderr)
}

func (e *ZFSError) Unwrap() error { return e.WaitErr }

func run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := zfscmd.CommandContext(ctx, binary, args...)
	stdout, err := cmd.Output()
	if err == nil {
		return stdout, nil
	}
	if !cmd.Started() {
		return nil, &StartError{Cmd: cmd.String(), Err: err}
	}
	zfsErr := &ZFSError{Cmd: cmd.String(), WaitErr: err}
	if ee, ok := err.(*exec.ExitError); ok {
		zfsErr.Stderr = ee.Stderr
	}
	return nil, zfsErr
}
