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


// Package mail is the mailbox boundary: it fetches messages incrementally
// from an IMAP server without modifying server state.
//
// Fetches are watermark-driven. A Watermark records (UIDVALIDITY, last UID)
// per mailbox; Fetch returns only messages above the watermark, in ascending
// UID order, so the caller can persist batch by batch and resume after a
// crash with at most one batch of rework. A UIDVALIDITY change invalidates
// every previously seen UID and restarts the sync from the beginning;
// content-hash identities keep the restart idempotent downstream.
package mail
