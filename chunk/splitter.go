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


package chunk

import (
	"errors"
	"regexp"
	"strings"

	"github.com/mlgkav/email-agent/core"
)

const (
	// DefaultMaxLen is the default chunk size in runes, including overlap.
	DefaultMaxLen = 1000
	// DefaultOverlap is the default number of runes repeated from the end
	// of the previous chunk.
	DefaultOverlap = 100
)

// ErrInvalidParams indicates maxLen and overlap cannot produce progress.
var ErrInvalidParams = errors.New("chunk: overlap must be smaller than maxLen")

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Normalize prepares a message body for chunking: line endings become LF,
// trailing whitespace is stripped per line, and runs of blank lines collapse
// to a single paragraph break. Chunk offsets refer to this normalized text.
func Normalize(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	body = strings.Join(lines, "\n")

	body = blankRuns.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

// Split divides a message body into chunks of at most maxLen runes.
//
// Cut points prefer paragraph breaks, then sentence ends, then a hard cut
// when a single sentence exceeds the budget. Each chunk after the first
// repeats the last overlap runes of its predecessor so context survives the
// cut. Ordinals are contiguous from 0 and concatenating the non-overlapping
// spans reproduces the normalized body exactly.
//
// A body that fits in maxLen yields exactly one chunk.
func Split(msg *core.Message, maxLen, overlap int) ([]*core.Chunk, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxLen {
		return nil, ErrInvalidParams
	}

	body := Normalize(msg.Body())
	if body == "" {
		return nil, core.ErrEmptyBody
	}

	runes := []rune(body)
	spans := cutSpans(runes, maxLen, overlap)

	chunks := make([]*core.Chunk, 0, len(spans))
	for ordinal, span := range spans {
		head := span.start - span.overlap
		text := string(runes[head:span.end])
		chunks = append(chunks, &core.Chunk{
			Id:        core.ChunkID(msg.Id, ordinal, text),
			MessageId: msg.Id,
			Ordinal:   ordinal,
			Start:     span.start,
			Text:      text,
			Overlap:   span.overlap,
		})
	}
	return chunks, nil
}

type span struct {
	start   int // rune offset of the non-overlapping text
	end     int
	overlap int // runes repeated from the previous span
}

// cutSpans chooses cut points greedily. The first span may use the full
// budget; later spans reserve room for their overlap prefix so the rendered
// chunk text never exceeds maxLen.
func cutSpans(runes []rune, maxLen, overlap int) []span {
	var spans []span
	start := 0
	for start < len(runes) {
		budget := maxLen
		spanOverlap := 0
		if start > 0 {
			spanOverlap = overlap
			if start < overlap {
				spanOverlap = start
			}
			budget = maxLen - spanOverlap
		}

		end := start + budget
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = cutPoint(runes, start, end)
		}

		spans = append(spans, span{start: start, end: end, overlap: spanOverlap})
		start = end
	}
	return spans
}

// cutPoint returns the best cut position in (start, limit]: the last
// paragraph break, else the last sentence end, else limit (hard cut).
func cutPoint(runes []rune, start, limit int) int {
	paragraph := -1
	sentence := -1
	for i := start + 1; i <= limit; i++ {
		if i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			paragraph = i
		}
		if isSentenceEnd(runes, i) {
			sentence = i
		}
	}
	if paragraph > start {
		return paragraph
	}
	if sentence > start {
		return sentence
	}
	return limit
}

// isSentenceEnd reports whether position i sits just after a terminator
// followed by whitespace.
func isSentenceEnd(runes []rune, i int) bool {
	if i < 2 || i > len(runes) {
		return false
	}
	switch runes[i-2] {
	case '.', '!', '?':
	default:
		return false
	}
	switch runes[i-1] {
	case ' ', '\n', '\t':
		return true
	}
	return false
}

// Reassemble joins chunks back into the normalized body. It is the inverse
// of Split and exists for verification and debugging.
func Reassemble(chunks []*core.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		runes := []rune(c.Text)
		b.WriteString(string(runes[c.Overlap:]))
	}
	return b.String()
}
