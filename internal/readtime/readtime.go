// Package readtime estimates how long an article takes to read.
package readtime

import "strings"

// WordsPerMinute is the assumed reading speed.
const WordsPerMinute = 200

// Words counts whitespace-separated tokens in content.
func Words(content string) int {
	return len(strings.Fields(content))
}

// Estimate returns ceil(words / WordsPerMinute). Empty content yields 0.
func Estimate(content string) int {
	return (Words(content) + WordsPerMinute - 1) / WordsPerMinute
}
