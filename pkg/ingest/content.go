package ingest

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"

	"github.com/go-go-golems/parley/pkg/conversation"
)

// MaxFileTokens bounds the combined size of attached file content, leaving
// room for the prompt and the response.
const MaxFileTokens = 50_000

// Builder assembles message content from a prompt plus optional file and image
// attachments.
type Builder struct {
	codec         tokenizer.Codec
	maxFileTokens int
}

func NewBuilder() (*Builder, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tokenizer")
	}
	return &Builder{
		codec:         codec,
		maxFileTokens: MaxFileTokens,
	}, nil
}

// BuildContent returns plain text content when no attachments survive
// ingestion, and a structured multi-part value otherwise.
func (b *Builder) BuildContent(prompt string, files []string, images []string) conversation.Content {
	parts := []conversation.ContentPart{conversation.NewTextPart(prompt)}

	if len(files) > 0 {
		if fileContent := b.readFiles(files); fileContent != "" {
			parts = append(parts, conversation.NewTextPart("\n\nFiles:\n"+fileContent))
		}
	}

	for _, imagePath := range images {
		dataURL, ok := b.encodeImage(imagePath)
		if ok {
			parts = append(parts, conversation.NewImagePart(dataURL))
		}
	}

	if len(parts) == 1 {
		return conversation.NewTextContent(prompt)
	}
	return conversation.NewMultiPartContent(parts)
}

// readFiles concatenates file contents under per-file headers within the token
// budget. Unreadable files are skipped with a warning; the first file that
// overflows the budget is truncated when enough room remains, then ingestion
// stops.
func (b *Builder) readFiles(filePaths []string) string {
	var contents strings.Builder
	totalTokens := 0

	for _, filePath := range filePaths {
		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Warn().Err(err).Str("file", filePath).Msg("could not read file")
			continue
		}
		content := string(data)

		fileTokens := b.countTokens(content)
		if totalTokens+fileTokens > b.maxFileTokens {
			remaining := b.maxFileTokens - totalTokens
			if remaining > 100 {
				// Cut by the usual ~4 chars per token estimate; exact token
				// alignment doesn't matter for a truncated tail.
				charLimit := remaining * 4
				if charLimit < len(content) {
					content = content[:charLimit]
				}
				contents.WriteString(fmt.Sprintf("\n--- %s ---\n%s\n[File truncated]", filePath, content))
			}
			break
		}

		contents.WriteString(fmt.Sprintf("\n--- %s ---\n%s", filePath, content))
		totalTokens += fileTokens
	}

	return contents.String()
}

func (b *Builder) countTokens(content string) int {
	ids, _, err := b.codec.Encode(content)
	if err != nil {
		// Fall back to the character estimate on tokenizer failure.
		return len(content) / 4
	}
	return len(ids)
}

// encodeImage inlines an image as a base64 data URL with extension-based MIME
// detection, defaulting to JPEG for unknown types.
func (b *Builder) encodeImage(imagePath string) (string, bool) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		log.Warn().Err(err).Str("image", imagePath).Msg("could not read image")
		return "", false
	}

	mimeType := mediaTypeFromExtension(filepath.Ext(imagePath))
	encoded := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("data:%s;base64,%s", mimeType, encoded), true
}

func mediaTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
