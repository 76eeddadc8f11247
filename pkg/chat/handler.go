package chat

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/prompts"
)

// Store is the conversation persistence surface the handler depends on.
type Store interface {
	Load(id string) (*conversation.Conversation, bool)
	CreateAndSave(title string, messages []*conversation.Message, modelMetadata map[string]interface{}) (string, error)
	AppendAndSave(id string, messages []*conversation.Message, modelMetadata map[string]interface{}, title string) bool
	LockConversation(id string) func()
}

// Resolver maps model names to provider-qualified identifiers and back to
// short display aliases. Both lookups return "" on a miss.
type Resolver interface {
	Resolve(name string) string
	ShortName(fullName string) string
}

// Caller performs the outbound model call. Implementations fail with a typed
// error on any non-success outcome.
type Caller interface {
	Invoke(ctx context.Context, messages []conversation.APIMessage, model string, reasoningEffort string) (string, error)
}

// ContentBuilder assembles message content from a prompt plus attachments.
type ContentBuilder interface {
	BuildContent(prompt string, files []string, images []string) conversation.Content
}

// Request is a single incoming chat turn. Exactly one of Title and
// ContinuationID must be set.
type Request struct {
	Prompt          string
	Model           string
	Title           string
	ContinuationID  string
	Files           []string
	Images          []string
	ReasoningEffort string
}

// Result is the structured outcome of a turn. Validation and not-found
// failures set Error and leave ContinuationID and ModelUsed null; they are
// never raised.
type Result struct {
	Content        string  `json:"content,omitempty"`
	Error          string  `json:"error,omitempty"`
	ContinuationID *string `json:"continuation_id"`
	ModelUsed      *string `json:"model_used"`
}

func errorResult(msg string) Result {
	return Result{Error: msg}
}

// Handler turns one chat request into a complete, persisted conversation turn.
type Handler struct {
	store    Store
	registry Resolver
	caller   Caller
	content  ContentBuilder
}

func NewHandler(store Store, registry Resolver, caller Caller, content ContentBuilder) *Handler {
	return &Handler{
		store:    store,
		registry: registry,
		caller:   caller,
		content:  content,
	}
}

// Chat runs a full turn: resolve conversation identity, assemble the outbound
// message list from stored history plus the new prompt, call the model, and
// persist both new messages. A model-call failure is a hard failure of the
// turn and leaves no half-written conversation state behind; a persistence
// failure is logged but does not erase the already-obtained response.
func (h *Handler) Chat(ctx context.Context, req Request) (Result, error) {
	resolvedModel := h.registry.Resolve(req.Model)
	if resolvedModel == "" {
		// Not in the registry; use as-is (might be a full provider path).
		resolvedModel = req.Model
	}

	if req.Title != "" && req.ContinuationID != "" {
		return errorResult("Cannot provide both 'title' and 'continuation_id'. Use 'title' for new conversations or 'continuation_id' to continue existing ones."), nil
	}
	if req.Title == "" && req.ContinuationID == "" {
		return errorResult("Must provide either 'title' for a new conversation or 'continuation_id' to continue an existing one."), nil
	}

	newConversation := req.ContinuationID == ""

	var history []*conversation.Message
	if !newConversation {
		// Serialize concurrent turns against the same conversation for the
		// whole load-call-save sequence.
		unlock := h.store.LockConversation(req.ContinuationID)
		defer unlock()

		conv, found := h.store.Load(req.ContinuationID)
		if !found {
			return errorResult(fmt.Sprintf("Conversation %s not found. Please start a new conversation or use a valid continuation_id.", req.ContinuationID)), nil
		}
		// Copy so the cached record is never mutated before the save.
		history = append(history, conv.Messages...)
	}

	wrappedPrompt := req.Prompt + prompts.RequestWrapper()
	userContent := h.content.BuildContent(wrappedPrompt, req.Files, req.Images)
	userMessage := conversation.NewMessage(conversation.RoleUser, userContent,
		conversation.WithMetadata(map[string]interface{}{
			"target_model": resolvedModel,
		}))
	history = append(history, userMessage)

	apiMessages := conversation.ForAPI(history)
	apiMessages = append([]conversation.APIMessage{{
		Role:    conversation.RoleSystem,
		Content: conversation.NewTextContent(prompts.SystemPrompt()),
	}}, apiMessages...)

	responseText, err := h.caller.Invoke(ctx, apiMessages, resolvedModel, req.ReasoningEffort)
	if err != nil {
		return Result{}, errors.Wrapf(err, "chat turn failed for model %s", resolvedModel)
	}

	assistantMessage := conversation.NewMessage(conversation.RoleAssistant,
		conversation.NewTextContent(responseText),
		conversation.WithMetadata(map[string]interface{}{
			"model":      resolvedModel,
			"model_used": resolvedModel,
		}))
	history = append(history, assistantMessage)

	modelMetadata := map[string]interface{}{
		conversation.ModelMetadataModelsUsed: []string{resolvedModel},
	}

	continuationID := req.ContinuationID
	if newConversation {
		id, err := h.store.CreateAndSave(req.Title, history, modelMetadata)
		if err != nil {
			log.Warn().Err(err).Msg("failed to persist new conversation")
		}
		continuationID = id
	} else {
		// Title stays "" on continuations so the stored one is never altered.
		if ok := h.store.AppendAndSave(continuationID, history, modelMetadata, ""); !ok {
			log.Warn().Str("conversation_id", continuationID).Msg("failed to persist conversation turn")
		}
	}

	displayName := h.registry.ShortName(resolvedModel)
	if displayName == "" {
		displayName = resolvedModel
	}

	return Result{
		Content:        responseText + prompts.ResponseWrapper(displayName),
		ContinuationID: &continuationID,
		ModelUsed:      &displayName,
	}, nil
}
