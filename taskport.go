// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package taskport

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// Cmd describes the child process to launch: the program, its arguments
// and environment, and optional standard stream redirections. It plays
// the role exec.Cmd plays for ordinary spawns; exec.Cmd itself cannot be
// used because the handoff has to run between fork and exec, a window
// exec.Cmd does not expose.
type Cmd struct {
	// Path is the program to run, as an absolute or relative path. No
	// $PATH search is performed; use exec.LookPath first if one is
	// wanted.
	Path string

	// Args holds the argv to pass, with the program name as Args[0].
	// If empty, []string{Path} is used.
	Args []string

	// Env holds the environment in the form returned by os.Environ.
	// nil means the parent's environment.
	Env []string

	// Dir is the working directory for the child; empty means inherit
	// the parent's.
	Dir string

	// Stdin, Stdout and Stderr redirect the child's standard streams.
	// A nil entry means the child inherits the corresponding parent
	// stream.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Process is the handle to a spawned child.
type Process struct {
	pid  int
	proc *os.Process
}

func newProcess(pid int) *Process {
	proc, _ := os.FindProcess(pid) // cannot fail on unix
	return &Process{pid: pid, proc: proc}
}

// Pid returns the child's process id as reported by fork.
func (p *Process) Pid() int { return p.pid }

// Wait blocks until the child exits and returns its final state.
func (p *Process) Wait() (*os.ProcessState, error) { return p.proc.Wait() }

// Kill terminates the child immediately.
func (p *Process) Kill() error { return p.proc.Kill() }

// Signal sends sig to the child.
func (p *Process) Signal(sig os.Signal) error { return p.proc.Signal(sig) }

// Exists reports whether the child process still exists.
func (p *Process) Exists() bool {
	ok, err := process.PidExists(int32(p.pid))
	return err == nil && ok
}

// verifySender checks the kernel-reported sender identity against the
// pid fork returned. Only called on builds that request the audit
// trailer.
func verifySender(want, got int) error {
	if want == got {
		return nil
	}
	e := &IdentityMismatchError{Want: want, Got: got}
	// Best effort: name the process that actually sent the message.
	if p, err := process.NewProcess(int32(got)); err == nil {
		if name, err := p.Name(); err == nil {
			e.GotName = name
		}
	}
	return e
}
