// Copyright 2022 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package taskport

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Bootstrap service names are NUL-terminated strings bounded by name_t in
// the bootstrap headers.
const maxNameLen = 128

// rendezvousName returns the bootstrap service name for a single spawn
// attempt. Names carry 128 bits of randomness: no external state is
// consulted, no name is ever reused, and no other process can plausibly
// guess one in the window between registration and lookup.
func rendezvousName() string {
	u := uuid.New()
	return fmt.Sprintf("taskport.%x", u[:])
}

// checkName rejects names the bootstrap name service cannot represent.
func checkName(name string) error {
	if name == "" || len(name) >= maxNameLen || strings.ContainsRune(name, 0) {
		return &NameEncodingError{Name: name}
	}
	return nil
}
