// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package machipc wraps the small set of Mach kernel primitives the task
// port handoff is built from: ownership of a receive right, registration
// and lookup of that right in the bootstrap namespace, the fixed-layout
// handoff message, and the fork/exec path that runs the child's side of
// the protocol before the target program is loaded.
//
// Everything here is darwin-only; the portable files carry just the types
// shared with the public package.
package machipc
