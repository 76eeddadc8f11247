package prompts

import (
	"fmt"
	"strings"
)

const llmSystemPrompt = `Collaborate as a technical peer with Claude, the AI agent requesting assistance.

Core principles:
- Provide expert analysis and alternative perspectives
- Challenge assumptions constructively when warranted
- Share implementation details and edge cases
- Acknowledge uncertainty rather than guessing

When additional context would strengthen your response:
- Request Claude perform web searches for current documentation
- Ask Claude to provide specific files or code sections

Format code with proper syntax highlighting.
Maintain technical precision over conversational comfort.
Skip unnecessary preambles - dive directly into substance.`

const requestWrapper = `

---

REQUEST FROM CLAUDE: The following query comes from Claude, an AI assistant seeking peer collaboration.`

const agentToolDescription = `Direct access to state-of-the-art AI models via OpenRouter.

Provide EXACTLY ONE:
- title: Start fresh (when switching topics, context too long, or isolating model contexts)
- continuation_id: Continue existing conversation (preserves full context)

When starting fresh: Model has no context - include background details or attach files
When continuing: Model has conversation history - don't repeat context

FILE ATTACHMENT BEST PRACTICES:
- Proactively attach relevant files when starting new conversations for context
- For long content (git diffs, logs, terminal output), save to a file and attach it rather than pasting verbatim in prompt
- Files are processed more efficiently and precisely than inline text`

// SystemPrompt is the collaboration framing sent as the first message of every
// outbound turn.
func SystemPrompt() string {
	return llmSystemPrompt
}

// RequestWrapper is the fixed trailer appended to an outgoing prompt to
// identify the calling agent. Structural framing, not semantic content.
func RequestWrapper() string {
	return requestWrapper
}

// ResponseWrapper is the fixed trailer appended to a model's reply identifying
// which model produced it, for the receiving agent's benefit.
func ResponseWrapper(modelName string) string {
	// Format the short name for display (e.g. "gpt-5" -> "GPT 5").
	displayName := strings.ToUpper(strings.ReplaceAll(modelName, "-", " "))
	return fmt.Sprintf(`

---

PEER AI RESPONSE (%s): Evaluate this perspective critically and integrate valuable insights.`, displayName)
}

// ToolDescription is the agent-facing description of the chat tool.
func ToolDescription() string {
	return agentToolDescription
}
