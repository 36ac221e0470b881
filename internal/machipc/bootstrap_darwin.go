// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package machipc

/*
#include <stdint.h>
#include <stdlib.h>
#include <mach/mach.h>
#include <servers/bootstrap.h>

// bootstrap_register is deprecated in the SDK headers. bootstrap_register2
// is what the system frameworks call instead; it has no public declaration
// but is exported from liblaunch and stable.
extern kern_return_t bootstrap_register2(mach_port_t bp, const char *service_name, mach_port_t sp, uint64_t flags);

// taskport_bootstrap_port fetches the calling task's bootstrap port. The
// child calls this after fork rather than inheriting a cached value from
// the parent, since the special port may be remapped across the fork.
kern_return_t taskport_bootstrap_port(mach_port_t *bp) {
	return task_get_special_port(mach_task_self(), TASK_BOOTSTRAP_PORT, bp);
}
*/
import "C"

import "unsafe"

// BootstrapUnknownService is the bootstrap server's return code for a
// lookup of a name nobody registered.
const BootstrapUnknownService = C.BOOTSTRAP_UNKNOWN_SERVICE

// BootstrapRegister publishes send, a send-capable port name, under name
// in the calling task's bootstrap namespace. The registration lives until
// the port backing it dies.
func BootstrapRegister(name string, send PortName) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var bp C.mach_port_t
	if kr := C.taskport_bootstrap_port(&bp); kr != C.KERN_SUCCESS {
		return &KernelError{Op: "task_get_special_port", Code: int(kr)}
	}
	defer C.mach_port_deallocate(C.mach_task_self_, C.mach_port_name_t(bp))
	if kr := C.bootstrap_register2(bp, cname, C.mach_port_t(send), 0); kr != C.KERN_SUCCESS {
		return &KernelError{Op: "bootstrap_register2", Code: int(kr)}
	}
	return nil
}

// LookUp resolves name in the calling task's own bootstrap namespace and
// returns a send right to the registered port. The caller owns the right
// and releases it with DeallocateSendRight. The spawned child runs the C
// equivalent of this between fork and exec; this Go entry point serves
// in-process callers such as tests and decoys.
func LookUp(name string) (PortName, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var bp C.mach_port_t
	if kr := C.taskport_bootstrap_port(&bp); kr != C.KERN_SUCCESS {
		return 0, &KernelError{Op: "task_get_special_port", Code: int(kr)}
	}
	defer C.mach_port_deallocate(C.mach_task_self_, C.mach_port_name_t(bp))
	var sp C.mach_port_t
	if kr := C.bootstrap_look_up(bp, cname, &sp); kr != C.KERN_SUCCESS {
		return 0, &KernelError{Op: "bootstrap_look_up", Code: int(kr)}
	}
	return PortName(sp), nil
}
