// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaxDescriptionRunes bounds the description included in embedding text.
const MaxDescriptionRunes = 1000

// ItemText builds the provider input for an item, one "Field: value" line
// per non-empty field in the order title, author, series, description.
func ItemText(title, author, series, description string) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(strings.TrimSpace(title))

	appendLine := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		b.WriteString("\n")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
	}

	appendLine("Author", author)
	appendLine("Series", series)
	appendLine("Description", truncateRunes(strings.TrimSpace(description), MaxDescriptionRunes))
	return b.String()
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}

// ContentHash returns the hex SHA-256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
