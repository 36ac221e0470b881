// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin && auditpid

package machipc

/*
#cgo LDFLAGS: -lbsm

#include <string.h>
#include <mach/mach.h>
#include <bsm/libbsm.h>

#define TASKPORT_ERR_MALFORMED (-2)

// Receive-side layout with sender verification: the handoff message plus
// room for the audit trailer. The trailer is attached by the kernel, not
// the sender, so its contents cannot be forged from the message body.
typedef struct {
	mach_msg_header_t header;
	mach_msg_body_t body;
	mach_msg_port_descriptor_t task_port;
	mach_msg_audit_trailer_t trailer;
} taskport_recv_msg_t;

kern_return_t taskport_receive(mach_port_t port, mach_port_t *task, int *sender_pid) {
	taskport_recv_msg_t msg;
	memset(&msg, 0, sizeof msg);
	mach_msg_option_t options = MACH_RCV_MSG |
	    MACH_RCV_TRAILER_TYPE(MACH_RCV_TRAILER_AUDIT) |
	    MACH_RCV_TRAILER_ELEMENTS(MACH_RCV_TRAILER_AUDIT);
	kern_return_t kr = mach_msg(&msg.header, options, 0, sizeof msg, port,
	                            MACH_MSG_TIMEOUT_NONE, MACH_PORT_NULL);
	if (kr != KERN_SUCCESS) {
		return kr;
	}
	if (msg.header.msgh_size != sizeof(mach_msg_header_t) + sizeof(mach_msg_body_t) + sizeof(mach_msg_port_descriptor_t) ||
	    (msg.header.msgh_bits & MACH_MSGH_BITS_COMPLEX) == 0 ||
	    msg.body.msgh_descriptor_count != 1 ||
	    msg.task_port.type != MACH_MSG_PORT_DESCRIPTOR ||
	    msg.trailer.msgh_trailer_size < sizeof(mach_msg_audit_trailer_t)) {
		mach_msg_destroy(&msg.header);
		return TASKPORT_ERR_MALFORMED;
	}
	*task = msg.task_port.name;
	*sender_pid = audit_token_to_pid(msg.trailer.msgh_audit);
	return KERN_SUCCESS;
}
*/
import "C"

// AuditEnabled reports whether the receive side was built to request and
// check the kernel's audit trailer (build tag auditpid).
const AuditEnabled = true

// ReceiveTaskPort blocks until exactly one handoff message arrives on p
// and returns the embedded task port along with the sender's pid as
// reported by the kernel's audit trailer. There is no timeout: a child
// that never sends leaves the caller blocked, by design.
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
