// Package transcript assembles the session narration log into a summary.
package transcript

import (
	"strings"
	"sync"
)

// Summary accumulates narrated script lines and question/answer exchanges in
// the order they were spoken and renders them as one normalized transcript.
type Summary struct {
	mu    sync.Mutex
	lines []string
}

// AddNarration records one scripted narration line.
func (s *Summary) AddNarration(text string) {
	s.add("Assistant: ", text)
}

// AddQuestion records a transcribed user question.
func (s *Summary) AddQuestion(text string) {
	s.add("You: ", text)
}

// AddAnswer records the spoken answer to a question.
func (s *Summary) AddAnswer(text string) {
	s.add("Assistant: ", text)
}

func (s *Summary) add(prefix, text string) {
	normalized := Normalize(text)
	if normalized == "" {
		return
	}
	s.mu.Lock()
	s.lines = append(s.lines, prefix+normalized)
	s.mu.Unlock()
}

// Render joins all recorded lines into the final transcript summary.
func (s *Summary) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.lines, "\n")
}

// Normalize collapses interior whitespace and trims the line.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
