// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package taskport_test

import (
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
	"testing"

	"v.io/x/lib/envvar"
	"v.io/x/lib/gosh"

	"v.io/x/taskport"
	"v.io/x/taskport/internal/machipc"
)

var readStdin = gosh.RegisterFunc("readStdin", func() {
	io.Copy(io.Discard, os.Stdin) //nolint:errcheck
})

func TestMain(m *testing.M) {
	gosh.InitMain()
	os.Exit(m.Run())
}

// spawnCmd converts a gosh invocation into a Cmd, so the child can be
// launched through the task port handoff instead of through gosh.
func spawnCmd(c *gosh.Cmd) *taskport.Cmd {
	return &taskport.Cmd{
		Path: c.Args[0],
		Args: c.Args,
		Env:  envvar.MapToSlice(envvar.MergeMaps(envvar.SliceToMap(os.Environ()), c.Vars)),
	}
}

func spawnReadStdin(t *testing.T, sh *gosh.Shell) (*taskport.Process, *taskport.TaskPort, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	cmd := spawnCmd(sh.FuncCmd(readStdin))
	cmd.Stdin = r
	proc, task, err := taskport.Spawn(cmd)
	if err != nil {
		w.Close()
		t.Fatalf("Spawn: %v", err)
	}
	return proc, task, w
}

func TestSpawnTaskPortPid(t *testing.T) {
	sh := gosh.NewShell(t)
	defer sh.Cleanup()

	proc, task, stdin := spawnReadStdin(t, sh)
	defer task.Release()

	if !proc.Exists() {
		t.Errorf("child %d not running", proc.Pid())
	}
	pid, err := task.Pid()
	if err != nil {
		t.Fatalf("task.Pid: %v", err)
	}
	if pid != proc.Pid() {
		t.Errorf("task port reports pid %d, fork reported %d", pid, proc.Pid())
	}

	stdin.Close()
	state, err := proc.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !state.Success() {
		t.Errorf("child exited with %v", state)
	}
}

func TestConcurrentSpawns(t *testing.T) {
	sh := gosh.NewShell(t)
	defer sh.Cleanup()

	// Every spawn uses a fresh rendezvous name, so parallel handoffs
	// must not cross: each parent call sees its own child's task.
	const n = 8
	cmds := make([]*taskport.Cmd, n)
	pipes := make([]*os.File, n)
	for i := range cmds {
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("pipe: %v", err)
		}
		defer r.Close()
		cmds[i] = spawnCmd(sh.FuncCmd(readStdin))
		cmds[i].Stdin = r
		pipes[i] = w
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer pipes[i].Close()
			proc, task, err := taskport.Spawn(cmds[i])
			if err != nil {
				t.Errorf("Spawn %d: %v", i, err)
				return
			}
			defer task.Release()
			pid, err := task.Pid()
			if err != nil {
				t.Errorf("task.Pid %d: %v", i, err)
			} else if pid != proc.Pid() {
				t.Errorf("spawn %d: task port reports pid %d, fork reported %d", i, pid, proc.Pid())
			}
			pipes[i].Close()
			if _, err := proc.Wait(); err != nil {
				t.Errorf("Wait %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestSpawnExecFailure(t *testing.T) {
	_, _, err := taskport.Spawn(&taskport.Cmd{Path: "/nonexistent/program"})
	if err == nil {
		t.Fatal("Spawn of a nonexistent program succeeded")
	}
	var perr *os.PathError
	if !errors.As(err, &perr) {
		t.Fatalf("got %v, want os.PathError", err)
	}
	if perr.Op != "exec" {
		t.Errorf("Op = %q, want %q", perr.Op, "exec")
	}
	if !errors.Is(err, syscall.ENOENT) {
		t.Errorf("got %v, want ENOENT", err)
	}
}

func TestPortsReleased(t *testing.T) {
	sh := gosh.NewShell(t)
	defer sh.Cleanup()

	spawnOnce := func() {
		proc, task, stdin := spawnReadStdin(t, sh)
		stdin.Close()
		task.Release()
		if _, err := proc.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if _, _, err := taskport.Spawn(&taskport.Cmd{Path: "/nonexistent/program"}); err == nil {
			t.Fatal("Spawn of a nonexistent program succeeded")
		}
	}

	// Warm up lazy allocations before taking the baseline.
	spawnOnce()
	base, err := machipc.PortCount()
	if err != nil {
		t.Fatalf("PortCount: %v", err)
	}
	for i := 0; i < 10; i++ {
		spawnOnce()
	}
	count, err := machipc.PortCount()
	if err != nil {
		t.Fatalf("PortCount: %v", err)
	}
	if count > base {
		t.Errorf("port count grew from %d to %d over repeated spawns", base, count)
	}
}

func TestVerifySender(t *testing.T) {
	if err := taskport.VerifySender(42, 42); err != nil {
		t.Errorf("matching pids: got %v", err)
	}
	err := taskport.VerifySender(42, os.Getpid())
	var mismatch *taskport.IdentityMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("got %v, want IdentityMismatchError", err)
	}
	if mismatch.Want != 42 || mismatch.Got != os.Getpid() {
		t.Errorf("mismatch = %+v, want Want=42 Got=%d", mismatch, os.Getpid())
	}
	if mismatch.GotName == "" {
		t.Errorf("no process name resolved for live pid %d", os.Getpid())
	}
}
