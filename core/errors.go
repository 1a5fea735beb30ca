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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidEntry indicates an IndexEntry failed validation.
	ErrInvalidEntry = errors.New("invalid index entry")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyBody indicates a message carries no indexable text.
	ErrEmptyBody = errors.New("message body cannot be empty")

	// ErrInvalidClassification indicates an invalid Classification value.
	ErrInvalidClassification = errors.New("invalid classification")

	// ErrEmptyMailbox indicates the mailbox name is missing.
	ErrEmptyMailbox = errors.New("mailbox name cannot be empty")

	// ErrVersionMismatch indicates vectors from different embedding service
	// versions were about to be compared.
	ErrVersionMismatch = errors.New("embedding version mismatch")
)
