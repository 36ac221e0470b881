// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package machipc

/*
#include <stdint.h>
#include <string.h>
#include <mach/mach.h>

// Wire layout of the handoff message, shared with the receive side in
// recv_darwin.go and recv_audit_darwin.go: header, a body descriptor
// count of one, and a single port descriptor carrying the sender's task
// port. The descriptor uses copy-send disposition so the sender keeps its
// own reference to the task port after the message is queued.
typedef struct {
	mach_msg_header_t header;
	mach_msg_body_t body;
	mach_msg_port_descriptor_t task_port;
} taskport_send_msg_t;

kern_return_t taskport_send_task(mach_port_t remote) {
	taskport_send_msg_t msg;
	memset(&msg, 0, sizeof msg);
	msg.header.msgh_bits = MACH_MSGH_BITS(MACH_MSG_TYPE_COPY_SEND, 0) | MACH_MSGH_BITS_COMPLEX;
	msg.header.msgh_size = sizeof msg;
	msg.header.msgh_remote_port = remote;
	msg.header.msgh_local_port = MACH_PORT_NULL;
	msg.header.msgh_voucher_port = MACH_PORT_NULL;
	msg.header.msgh_id = 0;
	msg.body.msgh_descriptor_count = 1;
	msg.task_port.name = mach_task_self();
	msg.task_port.disposition = MACH_MSG_TYPE_COPY_SEND;
	msg.task_port.type = MACH_MSG_PORT_DESCRIPTOR;
	return mach_msg(&msg.header, MACH_SEND_MSG, sizeof msg, 0, MACH_PORT_NULL,
	                MACH_MSG_TIMEOUT_NONE, MACH_PORT_NULL);
}

// taskport_send_bare sends a header-only message that deliberately does
// not match the handoff layout. Exercises the receive-side shape checks.
kern_return_t taskport_send_bare(mach_port_t remote) {
	mach_msg_header_t h;
	memset(&h, 0, sizeof h);
	h.msgh_bits = MACH_MSGH_BITS(MACH_MSG_TYPE_COPY_SEND, 0);
	h.msgh_size = sizeof h;
	h.msgh_remote_port = remote;
	return mach_msg(&h, MACH_SEND_MSG, sizeof h, 0, MACH_PORT_NULL,
	                MACH_MSG_TIMEOUT_NONE, MACH_PORT_NULL);
}

// taskport_drain receives and destroys at most one pending message
// without blocking.
kern_return_t taskport_drain(mach_port_t port) {
	struct {
		mach_msg_header_t header;
		uint8_t space[512];
	} msg;
	kern_return_t kr = mach_msg(&msg.header, MACH_RCV_MSG | MACH_RCV_TIMEOUT, 0,
	                            sizeof msg, port, 0, MACH_PORT_NULL);
	if (kr == KERN_SUCCESS) {
		mach_msg_destroy(&msg.header);
	}
	return kr;
}
*/
import "C"

import "v.io/x/lib/vlog"

// SendTaskSelf delivers the calling task's own task port to remote using
// the handoff message layout. The spawned child runs the same C path from
// inside the fork window; this Go entry point serves in-process senders
// such as tests and decoys.
func SendTaskSelf(remote PortName) error {
	if kr := C.taskport_send_task(C.mach_port_t(remote)); kr != C.KERN_SUCCESS {
		return &KernelError{Op: "mach_msg(MACH_SEND_MSG)", Code: int(kr)}
	}
	return nil
}

// sendBare sends a message that violates the handoff layout.
func sendBare(remote PortName) error {
	if kr := C.taskport_send_bare(C.mach_port_t(remote)); kr != C.KERN_SUCCESS {
		return &KernelError{Op: "mach_msg(MACH_SEND_MSG)", Code: int(kr)}
	}
	return nil
}

// Drain throws away one pending message, if any. A spawn attempt that is
// abandoned after the child may already have sent its handoff calls this
// before destroying the port, so the embedded right does not linger in
// the queue.
func (p *Port) Drain() {
	kr := C.taskport_drain(C.mach_port_t(p.name))
	if kr != C.KERN_SUCCESS && kr != C.MACH_RCV_TIMED_OUT {
		vlog.VI(2).Infof("draining port %#x: return code 0x%x", uint32(p.name), int(kr))
	}
}
