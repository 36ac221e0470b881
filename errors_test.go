// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package taskport_test

import (
	"errors"
	"strings"
	"testing"

	"v.io/x/taskport"
)

func TestKernelErrorFormat(t *testing.T) {
	err := &taskport.KernelError{Op: "mach_port_allocate", Code: 0x10000003}
	want := "mach_port_allocate failed with return code 0x10000003"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestErrorUnwrapping(t *testing.T) {
	kerr := &taskport.KernelError{Op: "bootstrap_register2", Code: 1100}
	reg := &taskport.RegistrationError{Name: "taskport.deadbeef", Err: kerr}
	var unwrapped *taskport.KernelError
	if !errors.As(reg, &unwrapped) {
		t.Fatalf("RegistrationError did not unwrap to KernelError")
	}
	if unwrapped != kerr {
		t.Errorf("unwrapped to %v, want %v", unwrapped, kerr)
	}
	if !strings.Contains(reg.Error(), "taskport.deadbeef") {
		t.Errorf("RegistrationError does not name the rendezvous name: %q", reg.Error())
	}
}

func TestIdentityMismatchErrorFormat(t *testing.T) {
	err := &taskport.IdentityMismatchError{Want: 100, Got: 200}
	want := "expected task port from child pid 100, got pid 200 instead"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	err.GotName = "decoy"
	want = "expected task port from child pid 100, got pid 200 (decoy) instead"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
