// Package walkthrough holds the fixed guided-scan script and its narration text.
package walkthrough

import "time"

// StepID identifies one scripted walkthrough step.
type StepID string

const (
	StepGreeting StepID = "greeting"
	StepWalls    StepID = "walls"
	StepWindows  StepID = "windows"
	StepCeiling  StepID = "ceiling"
	StepComplete StepID = "complete"
)

// Step is one immutable scripted walkthrough entry. Floor is the minimum time
// the step is held on screen even when narration finishes early.
type Step struct {
	ID     StepID
	Script string
	Floor  time.Duration
}

// Script returns the fixed ordered walkthrough sequence. The returned slice is
// a fresh copy; the script itself never changes after process start.
func Script() []Step {
	steps := make([]Step, len(script))
	copy(steps, script)
	return steps
}

var script = []Step{
	{
		ID:     StepGreeting,
		Script: "Hey there! I'm your estimating assistant. Let's get this room scanned. Start at the entrance and I'll guide you through.",
		Floor:  8 * time.Second,
	},
	{
		ID:     StepWalls,
		Script: "Perfect. Now slowly pan around the room. I'm analyzing the wall conditions and looking for any damage that needs prep work.",
		Floor:  12 * time.Second,
	},
	{
		ID:     StepWindows,
		Script: "Great work. Now focus on any windows and doors. I need to see the trim and frames up close.",
		Floor:  8 * time.Second,
	},
	{
		ID:     StepCeiling,
		Script: "Almost done! Tilt up and show me the ceiling. I'm checking for any water damage or texture issues.",
		Floor:  6 * time.Second,
	},
	{
		ID:     StepComplete,
		Script: "Excellent scan! I've got everything I need. Give me a moment to crunch the numbers.",
		Floor:  4 * time.Second,
	},
}

const (
	// ListeningPrompt is spoken state feedback when a question capture begins.
	ListeningPrompt = "I'm listening. What's your question?"

	// ClarificationPrompt is spoken when question capture yields no usable speech.
	ClarificationPrompt = "I didn't catch that. Hold the mic and speak clearly, then ask again."

	// InferenceFallback is spoken when the inference service is unreachable.
	InferenceFallback = "I'm having trouble connecting. Let's continue with the scan."

	// DomainContext frames every mid-scan question for the inference service.
	DomainContext = "User is scanning a room for a painting estimate"
)
