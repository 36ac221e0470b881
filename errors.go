// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package taskport

import (
	"fmt"

	"v.io/x/taskport/internal/machipc"
)

// KernelError reports a Mach call that did not return KERN_SUCCESS,
// naming the failing operation and its raw return code.
type KernelError = machipc.KernelError

// RegistrationError indicates the rendezvous name could not be published
// in the parent's bootstrap namespace.
type RegistrationError struct {
	Name string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registering rendezvous name %q: %v", e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// LookupError indicates the child could not resolve the rendezvous name
// in its own bootstrap namespace.
type LookupError struct {
	Name string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("child looking up rendezvous name %q: %v", e.Name, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// NameEncodingError indicates a rendezvous name the bootstrap name
// service cannot represent.
type NameEncodingError struct {
	Name string
}

func (e *NameEncodingError) Error() string {
	return fmt.Sprintf("rendezvous name %q is not a valid bootstrap service name", e.Name)
}

// SendError indicates the child failed to transmit its task port.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("child sending task port: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ReceiveError indicates the parent's blocking receive failed, including
// the case of a message that does not match the handoff layout.
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("receiving task port: %v", e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }

// IdentityMismatchError is returned by verified builds when the kernel's
// audit trailer attributes the handoff message to a process other than
// the spawned child.
type IdentityMismatchError struct {
	Want    int    // pid returned by fork
	Got     int    // pid reported by the audit trailer
	GotName string // executable name of Got, when resolvable
}

func (e *IdentityMismatchError) Error() string {
	if e.GotName != "" {
		return fmt.Sprintf("expected task port from child pid %d, got pid %d (%s) instead", e.Want, e.Got, e.GotName)
	}
	return fmt.Sprintf("expected task port from child pid %d, got pid %d instead", e.Want, e.Got)
}
