// Package chunker splits long bot replies into paced message bursts.
package chunker

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"fleet-assistant/internal/models"
)

const (
	DefaultThreshold = 200
	DefaultMaxChunk  = 150
	DefaultSpacing   = 1500 * time.Millisecond
)

// Delivery is one chunk and its offset from the first chunk.
type Delivery struct {
	Content string
	Buttons []models.Button
	Offset  time.Duration
}

type Chunker struct {
	Threshold int
	MaxChunk  int
	Spacing   time.Duration
}

func New(spacing time.Duration) *Chunker {
	if spacing <= 0 {
		spacing = DefaultSpacing
	}
	return &Chunker{Threshold: DefaultThreshold, MaxChunk: DefaultMaxChunk, Spacing: spacing}
}

// Split always returns at least one chunk. Text up to Threshold runes,
// blank text included, is a single chunk.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= c.Threshold {
		return []string{text}
	}

	var (
		chunks  []string
		current string
	)
	for _, s := range sentences(text) {
		switch {
		case current == "":
			current = s
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(s) <= c.MaxChunk:
			current += " " + s
		default:
			chunks = append(chunks, current)
			current = s
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// Plan spaces the chunks of reply and attaches buttons to the last one only.
func (c *Chunker) Plan(reply string, buttons []models.Button) []Delivery {
	chunks := c.Split(reply)
	out := make([]Delivery, len(chunks))
	for i, chunk := range chunks {
		out[i] = Delivery{Content: chunk, Offset: time.Duration(i) * c.Spacing}
	}
	if len(out) > 0 && len(buttons) > 0 {
		out[len(out)-1].Buttons = append([]models.Button(nil), buttons...)
	}
	return out
}

// sentences cuts text after '.', '!' or '?' when followed by whitespace.
func sentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
