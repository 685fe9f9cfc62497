package llm

import "strings"

// systemInstruction scopes the assistant to basketball topics for the
// course platform's learners.
const systemInstruction = `You are a friendly and supportive virtual assistant focused solely on basketball topics.
Respond to questions about basketball in a conversational and relatable manner.
Avoid discussing non-basketball subjects, and refrain from technical jargon.
Provide clear and simple explanations, encouraging curiosity and learning about basketball.
Always maintain a polite and respectful tone, ensuring users feel comfortable asking basketball-related questions.
For more information about basketball rules, visit: https://www.ducksters.com/sports/basketballrules.php`

// TitlePrompt builds the one-shot prompt used to label a session from its
// opening messages.
func TitlePrompt(openingMessages []string) string {
	return "Generate a brief and descriptive title for a chat about basketball. " +
		"Respond with the title only. Here's a summary of the conversation: " +
		strings.Join(openingMessages, ", ")
}
