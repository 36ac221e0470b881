// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command taskstat runs a program and reports on the Mach task port
// obtained for it through the spawn-time handoff.
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/shirou/gopsutil/v3/process"
	"v.io/x/lib/cmdline"

	"v.io/x/taskport"
)

func main() {
	cmdline.Main(cmdTaskStat)
}

var cmdTaskStat = &cmdline.Command{
	Runner: cmdline.RunnerFunc(runTaskStat),
	Name:   "taskstat",
	Short:  "Run a program and report on its Mach task port",
	Long: `
Command taskstat spawns the given program with the task port handoff,
prints the pid reported by fork alongside the pid the kernel reports for
the received task port, waits for the program to exit, and exits with its
status. The two pids agreeing is the whole point: the task port was
obtained without any task_for_pid call.
`,
	ArgsName: "<program> [args ...]",
	ArgsLong: "<program> is the program to run; it is searched for in $PATH.",
}

func runTaskStat(env *cmdline.Env, args []string) error {
	if len(args) == 0 {
		return env.UsageErrorf("no program specified")
	}
	path, err := exec.LookPath(args[0])
	if err != nil {
		return err
	}
	proc, task, err := taskport.Spawn(&taskport.Cmd{
		Path:   path,
		Args:   args,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return err
	}
	defer task.Release()

	taskPid, err := task.Pid()
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "spawned pid %d; task port %#x reports pid %d\n",
		proc.Pid(), task.Name(), taskPid)
	if p, err := process.NewProcess(int32(proc.Pid())); err == nil {
		if name, err := p.Name(); err == nil {
			fmt.Fprintf(env.Stdout, "process name: %s\n", name)
		}
		if created, err := p.CreateTime(); err == nil {
			fmt.Fprintf(env.Stdout, "started: %d (ms since epoch)\n", created)
		}
	}

	state, err := proc.Wait()
	if err != nil {
		return err
	}
	if !state.Success() {
		return fmt.Errorf("%s exited with %v", args[0], state)
	}
	return nil
}
