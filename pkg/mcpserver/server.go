package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/models"
	"github.com/go-go-golems/parley/pkg/prompts"
	"github.com/go-go-golems/parley/pkg/store"
)

const (
	serverName    = "parley"
	serverVersion = "2.0.0"
)

// Server hosts the chat tool and the slash-command prompts over MCP.
type Server struct {
	mcp      *server.MCPServer
	handler  *chat.Handler
	store    *store.Store
	registry *models.Registry
}

func New(handler *chat.Handler, st *store.Store, registry *models.Registry) *Server {
	s := &Server{
		mcp: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(false),
			server.WithPromptCapabilities(false),
			server.WithRecovery(),
		),
		handler:  handler,
		store:    st,
		registry: registry,
	}

	s.registerChatTool()
	s.registerPrompts()

	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	log.Info().Int("models", len(s.registry.Aliases())).Msg("starting parley MCP server")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerChatTool() {
	modelEnum := []string{}
	modelDescriptions := []string{}
	for _, alias := range s.registry.Aliases() {
		m, _ := s.registry.Get(alias)
		modelEnum = append(modelEnum, m.Name)
		modelDescriptions = append(modelDescriptions, fmt.Sprintf("• %s: %s", m.Name, m.Description))
	}
	modelsDescription := "Select the AI model that best fits your task:\n\n" + strings.Join(modelDescriptions, "\n")

	s.mcp.AddTool(
		mcpgo.NewTool("chat",
			mcpgo.WithDescription(prompts.ToolDescription()),
			mcpgo.WithString("prompt",
				mcpgo.Required(),
				mcpgo.Description("Your message or question"),
			),
			mcpgo.WithString("model",
				mcpgo.Required(),
				mcpgo.Enum(modelEnum...),
				mcpgo.Description(modelsDescription),
			),
			mcpgo.WithString("title",
				mcpgo.Description("Title for a new conversation (provide this OR continuation_id, not both)"),
			),
			mcpgo.WithString("continuation_id",
				mcpgo.Description("UUID from previous response to continue that conversation thread. Start fresh (omit this) when: switching topics, context too long, or keeping separate contexts per model"),
			),
			mcpgo.WithArray("files",
				mcpgo.WithStringItems(),
				mcpgo.Description("Absolute paths to files to include as context"),
			),
			mcpgo.WithArray("images",
				mcpgo.WithStringItems(),
				mcpgo.Description("Absolute paths to images to include"),
			),
			mcpgo.WithString("reasoning_effort",
				mcpgo.Enum("low", "medium", "high"),
				mcpgo.DefaultString("medium"),
				mcpgo.Description("Reasoning depth for models that support it (low=20%, medium=50%, high=80% of computation)"),
			),
		),
		s.handleChat,
	)
}

func (s *Server) handleChat(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return nil, err
	}
	model, err := req.RequireString("model")
	if err != nil {
		return nil, err
	}

	chatReq := chat.Request{
		Prompt:          prompt,
		Model:           model,
		Title:           req.GetString("title", ""),
		ContinuationID:  req.GetString("continuation_id", ""),
		Files:           req.GetStringSlice("files", nil),
		Images:          req.GetStringSlice("images", nil),
		ReasoningEffort: req.GetString("reasoning_effort", "medium"),
	}

	result, err := s.handler.Chat(ctx, chatReq)
	if err != nil {
		log.Error().Err(err).Msg("chat tool error")
		return mcpgo.NewToolResultError(fmt.Sprintf("Error: %s", err)), nil
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcpgo.NewToolResultText(string(payload)), nil
}

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(
		mcpgo.NewPrompt("chat",
			mcpgo.WithPromptDescription("Start a chat with AI models"),
		),
		func(ctx context.Context, req mcpgo.GetPromptRequest) (*mcpgo.GetPromptResult, error) {
			return userPromptResult("Start a chat with AI models",
				"Use the chat tool to start a conversation with an AI model."), nil
		},
	)

	s.mcp.AddPrompt(
		mcpgo.NewPrompt("continue",
			mcpgo.WithPromptDescription("Continue the previous conversation"),
		),
		func(ctx context.Context, req mcpgo.GetPromptRequest) (*mcpgo.GetPromptResult, error) {
			continuationID, modelUsed := s.store.LastConversation()

			var text string
			if continuationID != "" {
				if modelUsed == "" {
					modelUsed = "unknown - select appropriate model"
				}
				text = fmt.Sprintf(`Continue your previous conversation using the chat tool.

IMPORTANT: Use continuation_id: %q to maintain conversation context.
Previous model used: %s

This allows you to access the full conversation history even if your context was compacted.`, continuationID, modelUsed)
			} else {
				text = "No previous conversations found. Start a new conversation using the chat tool."
			}

			return userPromptResult("Continue the previous conversation", text), nil
		},
	)

	s.mcp.AddPrompt(
		mcpgo.NewPrompt("challenge",
			mcpgo.WithPromptDescription("Encourage critical thinking and avoid reflexive agreement"),
		),
		func(ctx context.Context, req mcpgo.GetPromptRequest) (*mcpgo.GetPromptResult, error) {
			return userPromptResult("Encourage critical thinking and avoid reflexive agreement",
				`CRITICAL REASSESSMENT MODE:

When using the chat tool, wrap your prompt with instructions for the AI to:
- Challenge ideas and think critically before responding
- Evaluate whether they actually agree or disagree
- Provide thoughtful analysis rather than reflexive agreement

Example: Instead of accepting a statement, ask the AI to examine it for accuracy, completeness, and reasoning flaws.
This promotes truth-seeking over compliance.`), nil
		},
	)

	s.mcp.AddPrompt(
		mcpgo.NewPrompt("discuss",
			mcpgo.WithPromptDescription("Orchestrate multi-turn discussion among multiple AIs"),
		),
		func(ctx context.Context, req mcpgo.GetPromptRequest) (*mcpgo.GetPromptResult, error) {
			return userPromptResult("Orchestrate multi-turn discussion among multiple AIs",
				`MULTI-AI DISCUSSION MODE:

Use the chat tool to orchestrate a multi-turn discussion among diverse AI models.

Requirements:
1. Select models with complementary strengths based on the topic
2. Start fresh conversations (no continuation_id) for each model
3. Provide context about the topic and other participants' perspectives
4. Exchange key insights between models across multiple turns
5. Encourage constructive disagreement - not consensus for its own sake
6. Continue until either consensus emerges naturally OR sufficiently diverse perspectives are gathered

Do NOT stop after one round. Keep the discussion going through multiple exchanges until reaching a natural conclusion.
Synthesize findings, highlighting both agreements and valuable disagreements.`), nil
		},
	)
}

func userPromptResult(description string, text string) *mcpgo.GetPromptResult {
	return mcpgo.NewGetPromptResult(description, []mcpgo.PromptMessage{
		mcpgo.NewPromptMessage(mcpgo.RoleUser, mcpgo.NewTextContent(text)),
	})
}
