// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package taskport

import (
	"errors"
	"os"
	"runtime"
	"syscall"

	"v.io/x/lib/vlog"

	"v.io/x/taskport/internal/machipc"
)

// TaskPort is an owned send right to a spawned child's Mach task port.
type TaskPort struct {
	name machipc.PortName
}

// Name returns the raw Mach port name, for callers that make their own
// kernel calls against the task.
func (t *TaskPort) Name() uint32 { return uint32(t.name) }

// Pid asks the kernel which process the task port refers to. It is the
// independent counterpart of Process.Pid: the two agree exactly when the
// handoff delivered the right port.
func (t *TaskPort) Pid() (int, error) {
	return machipc.TaskPortPid(t.name)
}

// Release gives up the send right. The TaskPort must not be used
// afterwards.
func (t *TaskPort) Release() {
	machipc.DeallocateSendRight(t.name)
}

// Spawn launches the program described by c and returns its process
// handle together with its Mach task port.
//
// A fresh rendezvous name and receive port are used for every call, and
// the port is discarded before Spawn returns, on every path. The receive
// blocks with no timeout once the child has reached exec; a child that
// never sends (which cannot happen through this package's own child-side
// code, since any pre-exec failure aborts the launch) would leave Spawn
// blocked.
func Spawn(c *Cmd) (*Process, *TaskPort, error) {
	if c.Path == "" {
		return nil, nil, errors.New("taskport: no program path")
	}
	port, err := machipc.Allocate()
	if err != nil {
		return nil, nil, err
	}
	defer port.Destroy()
	if err := port.InsertSendRight(); err != nil {
		return nil, nil, err
	}
	name := rendezvousName()
	if err := checkName(name); err != nil {
		return nil, nil, err
	}
	if err := machipc.BootstrapRegister(name, port.Name()); err != nil {
		return nil, nil, &RegistrationError{Name: name, Err: err}
	}

	argv := c.Args
	if len(argv) == 0 {
		argv = []string{c.Path}
	}
	env := c.Env
	if env == nil {
		env = os.Environ()
	}
	stdio := [3]int{-1, -1, -1}
	for i, f := range []*os.File{c.Stdin, c.Stdout, c.Stderr} {
		if f != nil {
			stdio[i] = int(f.Fd())
		}
	}
	pid, err := machipc.SpawnChild(c.Path, argv, env, c.Dir, name, stdio)
	runtime.KeepAlive(c.Stdin)
	runtime.KeepAlive(c.Stdout)
	runtime.KeepAlive(c.Stderr)
	if err != nil {
		// The child may have sent its handoff before failing; throw
		// any pending message away along with the port.
		port.Drain()
		return nil, nil, spawnError(c, name, err)
	}
	vlog.VI(2).Infof("taskport: child %d reached exec, receiving on %q", pid, name)

	proc := newProcess(pid)
	task, senderPid, err := machipc.ReceiveTaskPort(port)
	if err != nil {
		abandon(proc)
		return nil, nil, &ReceiveError{Err: err}
	}
	if machipc.AuditEnabled {
		if err := verifySender(pid, senderPid); err != nil {
			machipc.DeallocateSendRight(task)
			abandon(proc)
			return nil, nil, err
		}
	}
	return proc, &TaskPort{name: task}, nil
}

// abandon disposes of a child whose handoff did not complete. The caller
// of Spawn must never be left holding a live process with no task port.
func abandon(p *Process) {
	if err := p.Kill(); err != nil {
		vlog.Errorf("taskport: killing abandoned child %d: %v", p.Pid(), err)
	}
	if _, err := p.Wait(); err != nil {
		vlog.Errorf("taskport: reaping abandoned child %d: %v", p.Pid(), err)
	}
}

// spawnError maps a child-side pre-exec failure to the error the caller
// sees.
func spawnError(c *Cmd, name string, err error) error {
	var h *machipc.HandoffError
	if !errors.As(err, &h) {
		return err
	}
	switch h.Step {
	case machipc.StepBootstrap:
		return &KernelError{Op: "task_get_special_port", Code: int(h.Code)}
	case machipc.StepLookUp:
		return &LookupError{Name: name, Err: &KernelError{Op: "bootstrap_look_up", Code: int(h.Code)}}
	case machipc.StepSend:
		return &SendError{Err: &KernelError{Op: "mach_msg(MACH_SEND_MSG)", Code: int(h.Code)}}
	case machipc.StepStdio:
		return &os.PathError{Op: "dup2", Path: c.Path, Err: syscall.Errno(h.Code)}
	case machipc.StepChdir:
		return &os.PathError{Op: "chdir", Path: c.Dir, Err: syscall.Errno(h.Code)}
	case machipc.StepExec:
		return &os.PathError{Op: "exec", Path: c.Path, Err: syscall.Errno(h.Code)}
	}
	return err
}
