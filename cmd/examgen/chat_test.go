package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSourceSnippets(t *testing.T) {
	long := strings.Repeat("сеть ", 40) // 200 runes, 360 bytes

	tests := []struct {
		name     string
		passages []string
		want     []string
	}{
		{"none", nil, nil},
		{"whitespace folded", []string{"  routing\n\ttables  are   static "}, []string{"routing tables are static"}},
		{
			"at most three",
			[]string{"one", "two", "three", "four", "five"},
			[]string{"one", "two", "three"},
		},
		{
			"blank passages skipped and not counted",
			[]string{"", "   ", "one", "\n\t", "two", "three", "four"},
			[]string{"one", "two", "three"},
		},
		{
			"long multibyte passage cut on runes",
			[]string{long},
			[]string{string([]rune(strings.TrimSpace(long))[:maxSourceRunes]) + "..."},
		},
		{
			"exactly the limit is kept whole",
			[]string{strings.Repeat("é", maxSourceRunes)},
			[]string{strings.Repeat("é", maxSourceRunes)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sourceSnippets(tt.passages)
			assert.Equal(t, tt.want, got)
			for _, s := range got {
				assert.True(t, utf8.ValidString(s), s)
				assert.LessOrEqual(t, utf8.RuneCountInString(s), maxSourceRunes+len("..."))
			}
		})
	}
}
