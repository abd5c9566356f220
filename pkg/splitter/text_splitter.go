package splitter

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// PassageSplitter cuts long search answers into passages small enough to be
// judged one at a time.
type PassageSplitter struct {
	splitter textsplitter.TextSplitter
	max      int
}

// NewPassageSplitter creates a recursive character splitter that keeps at
// most maxPassages chunks.
func NewPassageSplitter(chunkSize, chunkOverlap, maxPassages int) *PassageSplitter {
	ts := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	return &PassageSplitter{splitter: ts, max: maxPassages}
}

// Split returns the non-empty chunks of text. If the underlying splitter
// fails the whole text is returned as a single passage.
func (ps *PassageSplitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	chunks, err := ps.splitter.SplitText(text)
	if err != nil || len(chunks) == 0 {
		return []string{text}
	}

	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
		if ps.max > 0 && len(out) == ps.max {
			break
		}
	}
	return out
}
