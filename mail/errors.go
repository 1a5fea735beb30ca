// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mail

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConfig indicates a required connection parameter is empty.
	ErrMissingConfig = errors.New("missing required mail configuration")

	// ErrAuthFailed indicates the server rejected the credentials.
	ErrAuthFailed = errors.New("mail authentication failed")
)

// TransportError wraps connectivity and protocol failures so callers can
// distinguish them from content problems.
type TransportError struct {
	Op  string // the operation that failed: "dial", "login", "select", ...
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mail transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
