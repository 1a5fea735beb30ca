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


package classify

import (
	"regexp"
	"strings"

	"github.com/mlgkav/email-agent/core"
)

// HeuristicVersion identifies the current rule set. Bump it whenever a
// signal or weight changes so stored classifications can be told apart from
// fresh ones.
const HeuristicVersion = 1

// softThreshold is the weighted score at which soft signals alone flip a
// message to automated.
const softThreshold = 0.6

const (
	missingGreetingWeight  = 0.3
	missingSignatureWeight = 0.3
)

// noReplyPrefixes are sender local-part prefixes that indicate machine
// origin regardless of content.
var noReplyPrefixes = []string{
	"noreply@",
	"no-reply@",
	"donotreply@",
	"auto@",
	"automated@",
	"system@",
	"notification@",
}

// trackingPixelPattern matches 1x1 images regardless of attribute order.
var trackingPixelPattern = regexp.MustCompile(
	`(?is)<img[^>]*?(?:width\s*=\s*["']?1(?:px)?["']?[^>]*?height\s*=\s*["']?1(?:px)?["']?|height\s*=\s*["']?1(?:px)?["']?[^>]*?width\s*=\s*["']?1(?:px)?["']?)`)

var greetingPattern = regexp.MustCompile(
	`(?i)^(hi|hello|hey|dear|good\s+(morning|afternoon|evening))\b`)

var signaturePattern = regexp.MustCompile(
	`(?i)^(thanks|thank\s+you|regards|best(\s+(regards|wishes))?|kind\s+regards|cheers|sincerely|talk\s+soon|yours)\b`)

// Classify labels a message as human correspondence or automated mail.
//
// Hard signals (any one is decisive): a List-Unsubscribe or List-Id header,
// an Auto-Submitted header, a tracking pixel in the HTML body, or a no-reply
// sender. Soft signals (missing greeting, missing signature) are weighted
// and only decisive in combination. The function is pure: the same message
// always yields the same label under the same HeuristicVersion.
func Classify(msg *core.Message) core.Classification {
	if hasListHeaders(msg) || isAutoSubmitted(msg) || hasTrackingPixel(msg) || isNoReplySender(msg) {
		return core.ClassificationAutomated
	}

	var score float64
	if !hasGreeting(msg) {
		score += missingGreetingWeight
	}
	if !hasSignature(msg) {
		score += missingSignatureWeight
	}
	if score >= softThreshold {
		return core.ClassificationAutomated
	}

	return core.ClassificationHuman
}

// Apply classifies the message and stamps the result and heuristic version
// onto it.
func Apply(msg *core.Message) {
	msg.Classification = Classify(msg)
	msg.HeuristicVersion = HeuristicVersion
}

func hasListHeaders(msg *core.Message) bool {
	return msg.Headers["List-Unsubscribe"] != "" || msg.Headers["List-Id"] != ""
}

func isAutoSubmitted(msg *core.Message) bool {
	value := strings.ToLower(msg.Headers["Auto-Submitted"])
	return value != "" && value != "no"
}

func hasTrackingPixel(msg *core.Message) bool {
	return msg.HTMLBody != "" && trackingPixelPattern.MatchString(msg.HTMLBody)
}

func isNoReplySender(msg *core.Message) bool {
	from := strings.ToLower(msg.From)
	for _, prefix := range noReplyPrefixes {
		if strings.Contains(from, prefix) {
			return true
		}
	}
	return false
}

// hasGreeting reports whether one of the first lines opens like a personal
// message.
func hasGreeting(msg *core.Message) bool {
	lines := nonEmptyLines(msg.Body())
	limit := 3
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		if greetingPattern.MatchString(line) {
			return true
		}
	}
	return false
}

// hasSignature reports whether one of the last lines closes like a personal
// message.
func hasSignature(msg *core.Message) bool {
	lines := nonEmptyLines(msg.Body())
	start := len(lines) - 5
	if start < 0 {
		start = 0
	}
	for _, line := range lines[start:] {
		if signaturePattern.MatchString(line) {
			return true
		}
	}
	return false
}

func nonEmptyLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
