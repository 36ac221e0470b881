// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package taskport

// Exported for tests.
var (
	RendezvousName = rendezvousName
	CheckName      = checkName
	VerifySender   = verifySender
)
