// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin && !auditpid

package machipc

/*
#include <string.h>
#include <mach/mach.h>

#define TASKPORT_ERR_MALFORMED (-2)

// Receive-side layout without sender verification: the handoff message
// followed by the minimal trailer the kernel always appends. Built-in
// counterpart of the auditpid variant in recv_audit_darwin.go; the two
// must never be compiled together.
typedef struct {
	mach_msg_header_t header;
	mach_msg_body_t body;
	mach_msg_port_descriptor_t task_port;
	mach_msg_trailer_t trailer;
} taskport_recv_msg_t;

kern_return_t taskport_receive(mach_port_t port, mach_port_t *task, int *sender_pid) {
	taskport_recv_msg_t msg;
	memset(&msg, 0, sizeof msg);
	kern_return_t kr = mach_msg(&msg.header, MACH_RCV_MSG, 0, sizeof msg, port,
	                            MACH_MSG_TIMEOUT_NONE, MACH_PORT_NULL);
	if (kr != KERN_SUCCESS) {
		return kr;
	}
	if (msg.header.msgh_size != sizeof(mach_msg_header_t) + sizeof(mach_msg_body_t) + sizeof(mach_msg_port_descriptor_t) ||
	    (msg.header.msgh_bits & MACH_MSGH_BITS_COMPLEX) == 0 ||
	    msg.body.msgh_descriptor_count != 1 ||
	    msg.task_port.type != MACH_MSG_PORT_DESCRIPTOR) {
		// Destroy whatever rights arrived; a malformed message must
		// not leak them into our namespace.
		mach_msg_destroy(&msg.header);
		return TASKPORT_ERR_MALFORMED;
	}
	*task = msg.task_port.name;
	*sender_pid = -1;
	return KERN_SUCCESS;
}
*/
import "C"

// AuditEnabled reports whether the receive side was built to request and
// check the kernel's audit trailer (build tag auditpid).
const AuditEnabled = false

// ReceiveTaskPort blocks until exactly one handoff message arrives on p
// and returns the embedded task port. There is no timeout: a child that
// never sends leaves the caller blocked, by design. senderPid is -1 in
// this build; the auditpid build reports the sender's kernel-attested
// pid instead.
func ReceiveTaskPort(p *Port) (task PortName, senderPid int, err error) {
	var (
		t   C.mach_port_t
		pid C.int
	)
	kr := C.taskport_receive(C.mach_port_t(p.name), &t, &pid)
	switch {
	case kr == C.KERN_SUCCESS:
		return PortName(t), int(pid), nil
	case kr == C.TASKPORT_ERR_MALFORMED:
		return 0, -1, ErrMalformedMessage
	default:
		return 0, -1, &KernelError{Op: "mach_msg(MACH_RCV_MSG)", Code: int(kr)}
	}
}
