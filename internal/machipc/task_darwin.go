// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package machipc

/*
#include <mach/mach.h>

// pid_for_task is the kernel's task-to-pid query. No SDK header declares
// it, but it is exported from libsystem_kernel and stable; it is the
// independent check that a received task port really belongs to the
// process it is supposed to.
extern kern_return_t pid_for_task(mach_port_name_t task, int *pid);
*/
import "C"

// TaskPortPid asks the kernel which process the given task port refers
// to.
func TaskPortPid(task PortName) (int, error) {
	var pid C.int
	if kr := C.pid_for_task(C.mach_port_name_t(task), &pid); kr != C.KERN_SUCCESS {
		return 0, &KernelError{Op: "pid_for_task", Code: int(kr)}
	}
	return int(pid), nil
}
