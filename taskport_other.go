// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !darwin

package taskport

import (
	"fmt"
	"runtime"
)

// TaskPort is an owned send right to a spawned child's Mach task port.
// It is never produced on this platform.
type TaskPort struct{}

// Name returns the raw Mach port name.
func (t *TaskPort) Name() uint32 { return 0 }

// Pid asks the kernel which process the task port refers to.
func (t *TaskPort) Pid() (int, error) {
	return 0, fmt.Errorf("taskport: not supported on %s", runtime.GOOS)
}

// Release gives up the send right.
func (t *TaskPort) Release() {}

// Spawn launches the program described by c and returns its process
// handle together with its Mach task port. The handoff protocol is built
// on Mach messaging and the bootstrap server, so only darwin is
// supported.
func Spawn(c *Cmd) (*Process, *TaskPort, error) {
	return nil, nil, fmt.Errorf("taskport: not supported on %s", runtime.GOOS)
}
