// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package knowledge

import (
	"os"
	"strings"
)

// Fallback is used when the knowledge file is missing or unreadable.
const Fallback = "College information is currently unavailable."

// Load reads the knowledge file at path. Failures degrade to the
// Fallback notice; a missing file is a content problem for staff, not a
// startup error.
func Load(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fallback
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Fallback
	}
	return text
}

// BuildSystemPrompt embeds the college information into the assistant's
// standing instructions. The assistant answers in the language of the
// question, Arabic or English.
func BuildSystemPrompt(info string) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant for Helwan University students and staff. ")
	b.WriteString("Answer questions about the college using the information below. ")
	b.WriteString("Reply in the same language the question was asked in, Arabic or English. ")
	b.WriteString("If the answer is not covered by the information, say so rather than guessing.\n\n")
	b.WriteString("College information:\n")
	b.WriteString(info)
	return b.String()
}
