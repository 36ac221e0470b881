// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package machipc

import (
	"errors"
	"fmt"
	"syscall"
)

// PortName is a raw Mach port name in the current task's port namespace.
type PortName uint32

// KernelError reports a Mach call that did not return KERN_SUCCESS. Op is
// the failing call and Code the raw kern_return_t it produced.
type KernelError struct {
	Op   string
	Code int
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("%s failed with return code 0x%x", e.Op, e.Code)
}

// ErrMalformedMessage is returned by ReceiveTaskPort when a message
// arrives that is not shaped exactly like a task handoff: wrong size,
// missing complex bit, or anything other than a single embedded port
// descriptor. Truncating or guessing would hide a protocol violation, so
// the receive fails instead.
var ErrMalformedMessage = errors.New("message does not match task handoff layout")

// Step identifies how far through the pre-exec handoff the child got
// before failing. The values match the step numbers the child writes to
// the status pipe; see the C side of SpawnChild.
type Step int32

const (
	StepBootstrap Step = 1 + iota // task_get_special_port
	StepLookUp                    // bootstrap_look_up of the rendezvous name
	StepSend                      // mach_msg send of the task port
	StepStdio                     // dup2 of redirected standard streams
	StepChdir                     // chdir to the requested directory
	StepExec                      // execve of the target program
)

func (s Step) String() string {
	switch s {
	case StepBootstrap:
		return "task_get_special_port"
	case StepLookUp:
		return "bootstrap_look_up"
	case StepSend:
		return "mach_msg send"
	case StepStdio:
		return "stream redirection"
	case StepChdir:
		return "chdir"
	case StepExec:
		return "exec"
	}
	return fmt.Sprintf("step %d", int32(s))
}

// HandoffError reports a failure between fork and exec in the child, read
// back over the status pipe. Code holds a kern_return_t for the Mach
// steps and an errno for the rest.
type HandoffError struct {
	Step Step
	Code int32
}

func (e *HandoffError) Error() string {
	if e.Step >= StepStdio {
		return fmt.Sprintf("child failed during %v: %v", e.Step, syscall.Errno(e.Code))
	}
	return fmt.Sprintf("child failed during %v: return code 0x%x", e.Step, uint32(e.Code))
}
