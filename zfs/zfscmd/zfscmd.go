// Package zfscmd provides a wrapper around package os/exec.
// Functionality provided by the wrapper:
// - logging start and end of command execution
// - status report of active commands
// - prometheus metrics of runtimes
package zfscmd

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Cmd struct {
	cmd                                      *exec.Cmd
	ctx                                      context.Context
	invocation                               string
	mtx                                      sync.RWMutex
	startedAt, waitStartedAt, waitReturnedAt time.Time
}

func CommandContext(ctx context.Context, name string, arg ...string) *Cmd {
	cmd := exec.CommandContext(ctx, name, arg...)
	return &Cmd{cmd: cmd, ctx: ctx, invocation: uuid.New().String()}
}

// Output runs the command to completion and returns what it wrote to stdout.
//
// If the process exits non-zero, err is an *exec.ExitError with Stderr set.
// If the process could not be started, Started() returns false afterwards.
func (c *Cmd) Output() (o []byte, err error) {
	var stdout, stderr bytes.Buffer
	c.cmd.Stdout = &stdout
	c.cmd.Stderr = &stderr

	c.startPre()
	err = c.cmd.Start()
	c.startPost(err)
	if err != nil {
		return nil, err
	}

	c.waitPre()
	err = c.cmd.Wait()
	c.waitPost(err)
	if ee, ok := err.(*exec.ExitError); ok {
		ee.Stderr = stderr.Bytes()
	}
	return stdout.Bytes(), err
}

// Started reports whether the process was successfully spawned.
func (c *Cmd) Started() bool {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return !c.startedAt.IsZero()
}

func (c *Cmd) String() string {
	return strings.Join(c.cmd.Args, " ") // includes argv[0] if initialized with CommandContext, that's the only way we do it
}

// Invocation returns the identifier attached to every log line of this command.
func (c *Cmd) Invocation() string {
	return c.invocation
}

func (c *Cmd) log() Logger {
	return getLogger(c.ctx).
		WithField("cmd", c.String()).
		WithField("invocation", c.invocation)
}

func (c *Cmd) startPre() {
	startPreLogging(c, time.Now())
}

func (c *Cmd) startPost(err error) {

	now := time.Now()
	if err == nil {
		c.mtx.Lock()
		c.startedAt = now
		c.mtx.Unlock()
	}

	startPostReport(c, err, now)
	startPostLogging(c, err, now)
	startPostPrometheus(c, err, now)
}

func (c *Cmd) waitPre() {
	now := time.Now()

	c.mtx.Lock()
	// ignore duplicate waits
	if !c.waitStartedAt.IsZero() {
		c.mtx.Unlock()
		return
	}
	c.waitStartedAt = now
	c.mtx.Unlock()

	waitPreLogging(c, now)
}

type usage struct {
	total_secs, system_secs, user_secs float64
}

func (c *Cmd) waitPost(err error) {
	now := time.Now()

	c.mtx.Lock()
	// ignore duplicate waits
	if !c.waitReturnedAt.IsZero() {
		c.mtx.Unlock()
		return
	}
	c.waitReturnedAt = now
	c.mtx.Unlock()

	// build usage
	var u usage
	{
		var s *os.ProcessState
		if err == nil {
			s = c.cmd.ProcessState
		} else if ee, ok := err.(*exec.ExitError); ok {
			s = ee.ProcessState
		}

		if s == nil {
			u = usage{
				total_secs:  c.Runtime().Seconds(),
				system_secs: -1,
				user_secs:   -1,
			}
		} else {
			u = usage{
				total_secs:  c.Runtime().Seconds(),
				system_secs: s.SystemTime().Seconds(),
				user_secs:   s.UserTime().Seconds(),
			}
		}
	}

	waitPostReport(c, u, now)
	waitPostLogging(c, u, err, now)
	waitPostPrometheus(c, u, err, now)
}

// returns 0 if the command did not yet finish
func (c *Cmd) Runtime() time.Duration {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if c.waitReturnedAt.IsZero() {
		return 0
	}
	return c.waitReturnedAt.Sub(c.startedAt)
}
