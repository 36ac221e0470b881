// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package machipc

/*
#include <mach/mach.h>
*/
import "C"

import (
	"sync"
	"unsafe"

	"v.io/x/lib/vlog"
)

// Port owns a receive right in the current task's port namespace. The
// underlying kernel resource is released exactly once, by Destroy, no
// matter how many times Destroy runs or which path out of a spawn attempt
// triggered it.
type Port struct {
	name      PortName
	sendRight bool
	destroy   sync.Once
}

// Allocate creates a new port with a receive right owned by the calling
// task.
func Allocate() (*Port, error) {
	var name C.mach_port_name_t
	kr := C.mach_port_allocate(C.mach_task_self_, C.MACH_PORT_RIGHT_RECEIVE, &name)
	if kr != C.KERN_SUCCESS {
		return nil, &KernelError{Op: "mach_port_allocate", Code: int(kr)}
	}
	return &Port{name: PortName(name)}, nil
}

// Name returns the port's name in the current task's namespace.
func (p *Port) Name() PortName { return p.name }

// InsertSendRight derives a send right to the port under the same name,
// so that a send-capable reference can be handed out through the
// bootstrap namespace.
func (p *Port) InsertSendRight() error {
	kr := C.mach_port_insert_right(C.mach_task_self_, C.mach_port_name_t(p.name),
		C.mach_port_t(p.name), C.MACH_MSG_TYPE_MAKE_SEND)
	if kr != C.KERN_SUCCESS {
		return &KernelError{Op: "mach_port_insert_right", Code: int(kr)}
	}
	p.sendRight = true
	return nil
}

// Destroy releases the receive right and any send right derived with
// InsertSendRight. Failures are logged and swallowed; nothing corrective
// can be done about a release that goes wrong.
func (p *Port) Destroy() {
	p.destroy.Do(func() {
		if p.sendRight {
			if kr := C.mach_port_deallocate(C.mach_task_self_, C.mach_port_name_t(p.name)); kr != C.KERN_SUCCESS {
				vlog.Errorf("mach_port_deallocate(%#x) failed with return code 0x%x", uint32(p.name), int(kr))
			}
		}
		if kr := C.mach_port_mod_refs(C.mach_task_self_, C.mach_port_name_t(p.name),
			C.MACH_PORT_RIGHT_RECEIVE, C.mach_port_delta_t(-1)); kr != C.KERN_SUCCESS {
			vlog.Errorf("mach_port_mod_refs(%#x, receive, -1) failed with return code 0x%x", uint32(p.name), int(kr))
		}
	})
}

// PortCount returns the number of port names in the current task's
// namespace. Leak checks compare it before and after spawn attempts.
func PortCount() (int, error) {
	var (
		names C.mach_port_name_array_t
		types C.mach_port_type_array_t
		ncnt  C.mach_msg_type_number_t
		tcnt  C.mach_msg_type_number_t
	)
	kr := C.mach_port_names(C.mach_task_self_, &names, &ncnt, &types, &tcnt)
	if kr != C.KERN_SUCCESS {
		return 0, &KernelError{Op: "mach_port_names", Code: int(kr)}
	}
	// The arrays come back as out-of-line memory owned by the caller.
	C.vm_deallocate(C.mach_task_self_, C.vm_address_t(uintptr(unsafe.Pointer(names))),
		C.vm_size_t(ncnt)*C.sizeof_mach_port_name_t)
	C.vm_deallocate(C.mach_task_self_, C.vm_address_t(uintptr(unsafe.Pointer(types))),
		C.vm_size_t(tcnt)*C.sizeof_mach_port_type_t)
	return int(ncnt), nil
}

// DeallocateSendRight releases a send right obtained from LookUp or
// extracted from a received handoff message. Failures are logged and
// swallowed, matching Destroy.
func DeallocateSendRight(n PortName) {
	if kr := C.mach_port_deallocate(C.mach_task_self_, C.mach_port_name_t(n)); kr != C.KERN_SUCCESS {
		vlog.Errorf("mach_port_deallocate(%#x) failed with return code 0x%x", uint32(n), int(kr))
	}
}
