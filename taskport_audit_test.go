// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin && auditpid

package taskport_test

import (
	"errors"
	"os"
	"testing"

	"v.io/x/lib/gosh"

	"v.io/x/taskport"
	"v.io/x/taskport/internal/machipc"
)

var decoySend = gosh.RegisterFunc("decoySend", func(name string) error {
	send, err := machipc.LookUp(name)
	if err != nil {
		return err
	}
	defer machipc.DeallocateSendRight(send)
	return machipc.SendTaskSelf(send)
})

// A process other than the one we spawned can look up the rendezvous
// name and push its own task port at us. The audit trailer pins the
// sender's pid, so the forgery is detectable.
func TestForgedSenderRejected(t *testing.T) {
	sh := gosh.NewShell(t)
	defer sh.Cleanup()

	port, err := machipc.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	defer port.Destroy()
	if err := port.InsertSendRight(); err != nil {
		t.Fatalf("InsertSendRight: %v", err)
	}
	name := taskport.RendezvousName()
	if err := machipc.BootstrapRegister(name, port.Name()); err != nil {
		t.Fatalf("BootstrapRegister: %v", err)
	}

	c := sh.FuncCmd(decoySend, name)
	c.Start()

	task, senderPid, err := machipc.ReceiveTaskPort(port)
	if err != nil {
		t.Fatalf("ReceiveTaskPort: %v", err)
	}
	defer machipc.DeallocateSendRight(task)
	c.Wait()

	if senderPid == os.Getpid() {
		t.Fatalf("decoy message attributed to our own pid %d", senderPid)
	}
	verr := taskport.VerifySender(os.Getpid(), senderPid)
	var mismatch *taskport.IdentityMismatchError
	if !errors.As(verr, &mismatch) {
		t.Fatalf("got %v, want IdentityMismatchError", verr)
	}
	if mismatch.Want != os.Getpid() || mismatch.Got != senderPid {
		t.Errorf("mismatch = %+v, want Want=%d Got=%d", mismatch, os.Getpid(), senderPid)
	}
}
