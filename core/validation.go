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

import (
	"fmt"
	"time"
)

// ValidateMessage validates a fetched Message according to domain rules.
//
// Validation rules:
//   - Mailbox must not be empty
//   - the message must carry some indexable text
//   - Timestamp must not be in the future
//
// NOT validated (populated later in the pipeline):
//   - Classification (set by the classifier)
//   - Id (derived before persistence)
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if msg.Mailbox == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyMailbox)
	}

	if msg.Body() == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyBody)
	}

	if !IsValidTimestamp(msg.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateEntry validates an IndexEntry before it is persisted.
//
// Validation rules:
//   - Text must not be empty
//   - Vector must not be empty
//   - EmbeddingVersion must be stamped
//   - Classification must be a known value
func ValidateEntry(entry *IndexEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyBody)
	}

	if len(entry.Vector) == 0 {
		return fmt.Errorf("%w: vector is empty", ErrInvalidEntry)
	}

	if entry.EmbeddingVersion == "" {
		return fmt.Errorf("%w: embedding version not stamped", ErrInvalidEntry)
	}

	if err := ValidateClassification(entry.Classification); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	return nil
}

// ValidateClassification validates that a Classification has a valid value.
func ValidateClassification(c Classification) error {
	if c != ClassificationHuman && c != ClassificationAutomated {
		return fmt.Errorf("%w: value %d", ErrInvalidClassification, c)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
