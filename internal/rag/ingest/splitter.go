package ingest

import (
	"strings"
	"unicode/utf8"
)

// Separators ordered from "best" to "worst" for semantic meaning
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// splitTextIntoChunks cuts text into pieces of at most limit bytes, each
// starting with the last overlap bytes of the previous one. Cuts never land
// inside a UTF-8 sequence.
func splitTextIntoChunks(text string, limit int, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if overlap >= limit {
		overlap = limit / 4
	}
	return splitWith(text, limit, overlap, separators)
}

func splitWith(text string, limit int, overlap int, seps []string) []string {
	// If text is already small enough, just return it
	if len(text) <= limit {
		return []string{text}
	}

	var splitChar string
	rest := seps
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			splitChar = s
			rest = seps[i+1:]
			break
		}
	}

	var parts []string
	if splitChar == "" {
		parts = runeWindows(text, limit-overlap)
	} else {
		parts = strings.Split(text, splitChar)
	}

	var chunks []string
	var currentChunk strings.Builder

	for _, part := range parts {
		// a single part too large for any chunk gets split by the next separator
		if splitChar != "" && len(part) > limit-overlap-len(splitChar) {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, currentChunk.String())
				currentChunk.Reset()
			}
			chunks = append(chunks, splitWith(part, limit, overlap, rest)...)
			continue
		}

		if currentChunk.Len()+len(part)+len(splitChar) > limit {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, currentChunk.String())
			}

			// start the next chunk with the end of the previous one
			overlapContent := tailOf(currentChunk.String(), overlap)
			currentChunk.Reset()
			currentChunk.WriteString(overlapContent)
		}

		if currentChunk.Len() > 0 && splitChar != "" {
			currentChunk.WriteString(splitChar)
		}
		currentChunk.WriteString(part)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, currentChunk.String())
	}
	return chunks
}

// tailOf returns at most n trailing bytes of s, starting on a rune boundary.
func tailOf(s string, n int) string {
	if len(s) <= n {
		return ""
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

// runeWindows cuts s into pieces of at most size bytes without splitting runes.
func runeWindows(s string, size int) []string {
	if size <= 0 {
		size = 1
	}
	var out []string
	for len(s) > 0 {
		end := min(size, len(s))
		for end < len(s) && end > 0 && !utf8.RuneStart(s[end]) {
			end--
		}
		if end == 0 {
			_, end = utf8.DecodeRuneInString(s)
		}
		out = append(out, s[:end])
		s = s[end:]
	}
	return out
}
