// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package assistant

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxSentences = 3
	maxReplyLen  = 200
)

var (
	headingPattern   = regexp.MustCompile(`#{1,6}\s`)
	numberedPattern  = regexp.MustCompile(`(?m)^\d+\.\s`)
	bulletPattern    = regexp.MustCompile(`(?m)^[-•]\s`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
)

// Clean strips markdown the model adds despite being told not to.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	text = headingPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "`", "")
	text = numberedPattern.ReplaceAllString(text, "")
	text = bulletPattern.ReplaceAllString(text, "")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Shorten keeps the first three sentences, capped at 200 characters.
func Shorten(text string) string {
	sentences := splitSentences(text)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	text = strings.Join(sentences, " ")

	if utf8.RuneCountInString(text) > maxReplyLen {
		runes := []rune(text)
		text = string(runes[:maxReplyLen-3]) + "..."
	}
	return text
}

// splitSentences cuts after every terminal punctuation mark followed by
// whitespace. Trailing text without punctuation is the last sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, boundary := range sentenceBoundary.FindAllStringIndex(text, -1) {
		if sentence := strings.TrimSpace(text[start : boundary[0]+1]); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = boundary[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
