// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package taskport spawns a child process and returns its Mach task port
// together with the ordinary process handle.
//
// Many useful darwin kernel APIs require the task port of the process
// they operate on, and the security around task_for_pid has been
// tightened to the point where it cannot be relied upon even as root. A
// process you spawn yourself, however, can cooperate: in the window
// between fork and exec the child sends its own task port back to the
// parent, so no task_for_pid call is ever needed. The technique follows
// Chromium's mach_port_broker.
//
// The handoff works over a one-shot rendezvous. The parent allocates a
// receive port, publishes a send right to it in the bootstrap namespace
// under a fresh random name, and forks. Before exec, the child looks the
// name up in its own bootstrap namespace and sends a single message
// embedding a copy of its task port; the parent blocks for exactly that
// message. The name is never reused and the port is discarded once the
// message arrives.
//
// Builds with the auditpid tag additionally request the kernel's audit
// trailer on the receive and reject task ports whose sender pid does not
// match the forked child. Without the tag the randomness of the
// rendezvous name is the only defense against impersonation; enabling
// verification is recommended when the spawned programs are not fully
// trusted.
//
// Only darwin is supported: the protocol is inherently tied to Mach
// messaging and the bootstrap server. On other systems Spawn returns an
// error.
package taskport
