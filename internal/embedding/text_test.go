// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package embedding

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestItemText(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		author      string
		series      string
		description string
		want        string
	}{
		{
			name:        "all fields",
			title:       "The Great Gatsby",
			author:      "F. Scott Fitzgerald",
			series:      "",
			description: "A story about the American Dream",
			want:        "Title: The Great Gatsby\nAuthor: F. Scott Fitzgerald\nDescription: A story about the American Dream",
		},
		{
			name:   "series without description",
			title:  "Dune",
			author: "Frank Herbert",
			series: "Dune Chronicles",
			want:   "Title: Dune\nAuthor: Frank Herbert\nSeries: Dune Chronicles",
		},
		{
			name:  "title only",
			title: "Untitled",
			want:  "Title: Untitled",
		},
		{
			name:   "whitespace fields are omitted",
			title:  " Spaced ",
			author: "   ",
			want:   "Title: Spaced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ItemText(tt.title, tt.author, tt.series, tt.description); got != tt.want {
				t.Errorf("ItemText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestItemTextTruncatesDescription(t *testing.T) {
	desc := strings.Repeat("é", MaxDescriptionRunes+50)
	text := ItemText("T", "", "", desc)

	line := text[strings.Index(text, "Description: ")+len("Description: "):]
	if !strings.HasSuffix(line, "...") {
		t.Fatalf("truncated description should end with ..., got suffix %q", line[len(line)-5:])
	}
	if got := utf8.RuneCountInString(strings.TrimSuffix(line, "...")); got != MaxDescriptionRunes {
		t.Errorf("kept %d runes, want %d", got, MaxDescriptionRunes)
	}
	if !utf8.ValidString(text) {
		t.Error("truncation split a multi-byte rune")
	}

	exact := strings.Repeat("a", MaxDescriptionRunes)
	if got := ItemText("T", "", "", exact); strings.HasSuffix(got, "...") {
		t.Error("description at the limit should not be truncated")
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash("Title: A")
	b := ContentHash("Title: A")
	c := ContentHash("Title: B")

	if a != b {
		t.Error("ContentHash should be deterministic")
	}
	if a == c {
		t.Error("different text should hash differently")
	}
	if len(a) != 64 {
		t.Errorf("ContentHash length = %d, want 64 hex chars", len(a))
	}
}
