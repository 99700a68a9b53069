package zfscmd

import (
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// Lifecycle events are logged at debug until the process is gone.
// A clean exit is logged at info, everything else at error.

func startPreLogging(c *Cmd, now time.Time) {
	c.log().Debug("starting command")
}

func startPostLogging(c *Cmd, err error, now time.Time) {
	if err != nil {
		c.log().WithError(err).Error("cannot start command")
		return
	}
	c.log().WithField("pid", c.cmd.Process.Pid).Debug("started command")
}

func waitPreLogging(c *Cmd, now time.Time) {
	c.log().Debug("waiting for command")
}

func waitPostLogging(c *Cmd, u usage, err error, now time.Time) {
	log := c.log().WithField("runtime_s", u.total_secs)
	if u.system_secs >= 0 {
		log = log.WithField("systemtime_s", u.system_secs).WithField("usertime_s", u.user_secs)
	}

	var ee *exec.ExitError
	switch {
	case err == nil:
		log.Info("command exited without error")
	case errors.As(err, &ee):
		log.WithField("exit_code", ee.ExitCode()).WithError(err).Error("command exited with error")
	default:
		log.WithError(err).Error("waiting for command failed")
	}
}
