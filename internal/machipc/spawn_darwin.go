// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package machipc

/*
#include <errno.h>
#include <stdint.h>
#include <stdlib.h>
#include <unistd.h>
#include <mach/mach.h>
#include <servers/bootstrap.h>

extern kern_return_t taskport_bootstrap_port(mach_port_t *bp);
extern kern_return_t taskport_send_task(mach_port_t remote);

typedef struct {
	int32_t step;
	int32_t code;
} taskport_status_t;

// Step numbers must match the Step constants on the Go side.
static void taskport_child_fail(int status_fd, int32_t step, int32_t code) {
	taskport_status_t st;
	st.step = step;
	st.code = code;
	write(status_fd, &st, sizeof st);
	_exit(127);
}

// taskport_spawn forks and, in the child, performs the task port handoff
// before replacing the image with execve. Everything after fork runs in
// the narrow window before exec: only raw kernel calls and
// async-signal-safe libc, no runtime facilities of any kind. status_fd is
// close-on-exec, so the parent reads a failure record, or EOF exactly
// when exec succeeds.
int taskport_spawn(const char *path, char *const *argv, char *const *envp,
                   const char *dir, const char *name,
                   int stdin_fd, int stdout_fd, int stderr_fd, int status_fd) {
	pid_t pid = fork();
	if (pid != 0) {
		return pid;
	}

	// The bootstrap port is fetched fresh here rather than inherited
	// from the parent's value; the special port may be remapped across
	// the fork.
	kern_return_t kr;
	mach_port_t bp = MACH_PORT_NULL;
	mach_port_t parent = MACH_PORT_NULL;
	if ((kr = taskport_bootstrap_port(&bp)) != KERN_SUCCESS) {
		taskport_child_fail(status_fd, 1, kr);
	}
	if ((kr = bootstrap_look_up(bp, name, &parent)) != KERN_SUCCESS) {
		taskport_child_fail(status_fd, 2, kr);
	}
	if ((kr = taskport_send_task(parent)) != KERN_SUCCESS) {
		taskport_child_fail(status_fd, 3, kr);
	}
	mach_port_deallocate(mach_task_self(), parent);
	mach_port_deallocate(mach_task_self(), bp);

	if (stdin_fd >= 0 && dup2(stdin_fd, 0) < 0) {
		taskport_child_fail(status_fd, 4, errno);
	}
	if (stdout_fd >= 0 && dup2(stdout_fd, 1) < 0) {
		taskport_child_fail(status_fd, 4, errno);
	}
	if (stderr_fd >= 0 && dup2(stderr_fd, 2) < 0) {
		taskport_child_fail(status_fd, 4, errno);
	}
	if (dir != NULL && *dir != '\0' && chdir(dir) < 0) {
		taskport_child_fail(status_fd, 5, errno);
	}
	execve(path, argv, envp);
	taskport_child_fail(status_fd, 6, errno);
	return 0; // unreachable
}
*/
import "C"

import (
	"encoding/binary"
	"errors"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

var errShortStatus = errors.New("short status report from child")

// SpawnChild forks, runs the task port handoff for the rendezvous name in
// the child, and execs the program at path. stdio holds raw descriptors
// for the child's standard streams, -1 meaning inherit. On a handoff or
// exec failure the child is reaped before the error is returned, so
// callers never see a live process alongside a failed spawn.
func SpawnChild(path string, argv, env []string, dir, name string, stdio [3]int) (int, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var cdir *C.char
	if dir != "" {
		cdir = C.CString(dir)
		defer C.free(unsafe.Pointer(cdir))
	}
	cargv := cStringArray(argv)
	defer freeCStringArray(cargv)
	cenv := cStringArray(env)
	defer freeCStringArray(cenv)

	// The status pipe must be close-on-exec before any concurrent fork
	// can inherit the write end, or EOF would be delayed past exec.
	var p [2]int
	syscall.ForkLock.Lock()
	if err := unix.Pipe(p[:]); err != nil {
		syscall.ForkLock.Unlock()
		return -1, os.NewSyscallError("pipe", err)
	}
	unix.CloseOnExec(p[0])
	unix.CloseOnExec(p[1])
	pid, errno := C.taskport_spawn(cpath, &cargv[0], &cenv[0], cdir, cname,
		C.int(stdio[0]), C.int(stdio[1]), C.int(stdio[2]), C.int(p[1]))
	syscall.ForkLock.Unlock()
	unix.Close(p[1])
	if pid < 0 {
		unix.Close(p[0])
		return -1, os.NewSyscallError("fork", errno)
	}
	st, err := readStatus(p[0])
	unix.Close(p[0])
	if err != nil {
		reap(int(pid))
		return -1, err
	}
	if st != nil {
		reap(int(pid))
		return -1, st
	}
	return int(pid), nil
}

// readStatus reads the child's status record. A clean EOF means the child
// reached exec.
func readStatus(fd int) (*HandoffError, error) {
	var buf [8]byte
	n := 0
	for n < len(buf) {
		m, err := unix.Read(fd, buf[n:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, os.NewSyscallError("read", err)
		}
		if m == 0 {
			break
		}
		n += m
	}
	if n == 0 {
		return nil, nil
	}
	if n < len(buf) {
		return nil, errShortStatus
	}
	// All darwin targets are little-endian.
	return &HandoffError{
		Step: Step(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		Code: int32(binary.LittleEndian.Uint32(buf[4:8])),
	}, nil
}

func reap(pid int) {
	var ws unix.WaitStatus
	for {
		if _, err := unix.Wait4(pid, &ws, 0, nil); err != unix.EINTR {
			return
		}
	}
}

func cStringArray(ss []string) []*C.char {
	// NULL-terminated, as execve expects.
	arr := make([]*C.char, len(ss)+1)
	for i, s := range ss {
		arr[i] = C.CString(s)
	}
	return arr
}

func freeCStringArray(arr []*C.char) {
	for _, s := range arr {
		if s != nil {
			C.free(unsafe.Pointer(s))
		}
	}
}
