// Package textclean normalizes extracted text before classification. The
// cleaner is deterministic: the same input always yields the same output and
// the same operation metadata.
package textclean

import (
	"strings"
	"unicode"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

type Cleaner struct {
	noiseTokens map[string]struct{}
}

// defaultNoiseTokens are artifacts common in OCR output and copy-pasted
// documents that carry no content.
var defaultNoiseTokens = []string{
	"­", // soft hyphen
	"�", // replacement character
	"|",
	"###",
	"---",
}

func NewCleaner(extraNoiseTokens ...string) *Cleaner {
	tokens := make(map[string]struct{}, len(defaultNoiseTokens)+len(extraNoiseTokens))
	for _, t := range defaultNoiseTokens {
		tokens[t] = struct{}{}
	}
	for _, t := range extraNoiseTokens {
		t = strings.TrimSpace(t)
		if t != "" {
			tokens[t] = struct{}{}
		}
	}
	return &Cleaner{noiseTokens: tokens}
}

func (c *Cleaner) Clean(text string) (string, domain.CleaningOps) {
	ops := domain.CleaningOps{OriginalLength: len(text)}

	s := strings.ReplaceAll(text, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			ops.ControlCharsRemoved++
			return -1
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		kept := fields[:0]
		for _, field := range fields {
			if _, noise := c.noiseTokens[field]; noise {
				ops.NoiseTokensRemoved++
				continue
			}
			kept = append(kept, field)
		}
		if len(kept) == 0 {
			ops.LinesDropped++
			continue
		}
		cleaned = append(cleaned, strings.Join(kept, " "))
	}

	result := strings.Join(cleaned, "\n")
	ops.WhitespaceCollapsed = result != text
	ops.CleanedLength = len(result)
	return result, ops
}
