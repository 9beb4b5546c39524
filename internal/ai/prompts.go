package ai

import "fmt"

// chatSystemPrompt frames mid-scan questions for short spoken answers.
func chatSystemPrompt(domainContext string) string {
	if domainContext == "" {
		domainContext = "Room scanning in progress"
	}
	return fmt.Sprintf(`You are a friendly, professional AI assistant for a painting estimation app.
You're currently helping a painter scan a room for an estimate. Be conversational, helpful, and brief.
Context: %s
Keep responses to 1-2 sentences max. Be encouraging and professional.`, domainContext)
}

const estimatorSystemPrompt = `You are an expert professional painting estimator. ` +
	`You turn room walkthrough notes into priced line items using industry standard terminology.`

// suggestItemsPrompt asks for structured line items from a walkthrough transcript.
func suggestItemsPrompt(transcriptSummary string) string {
	return fmt.Sprintf(`Based on this room walkthrough transcript, propose 3-6 painting line items.

Transcript:
%s

Return ONLY a JSON object with keys: "items" (array of objects with "description", "quantity", "unit_price") and "complexity" (one of "Low", "Medium", "High"). Do not include markdown formatting.`, transcriptSummary)
}

const visionPrompt = `Analyze this room for a painting estimate. List 3-5 potential prep work items needed ` +
	`(e.g., patching holes, sanding trim, removing wallpaper) and estimate the complexity level (Low, Medium, High). ` +
	`Return ONLY a JSON object with keys: "items" (array of objects with "description", "quantity", "unit_price") ` +
	`and "complexity" (string). Do not include markdown formatting.`
