package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/conversation"
)

// DefaultCacheSize bounds the in-memory conversation cache. Disk stays the
// source of truth on eviction.
const DefaultCacheSize = 128

// Aliaser resolves a provider-qualified model identifier to its short display
// name. Resolution happens at the read/summary boundary only; the full
// identifier is what gets persisted.
type Aliaser interface {
	ShortName(fullName string) string
}

// Summary is the per-conversation digest returned by ListRecent.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
	ModelUsed string    `json:"model_used,omitempty"`
}

// Store persists one JSON file per conversation under a fixed directory, with
// a write-through LRU cache keyed by conversation id and a per-id lock table
// serializing concurrent turns against the same conversation.
type Store struct {
	dir     string
	aliaser Aliaser

	mu        sync.Mutex
	cache     *lru.Cache[string, *conversation.Conversation]
	locks     map[string]*sync.Mutex
	lastID    string
	lastModel string
}

type Option func(*Store)

func WithAliaser(a Aliaser) Option {
	return func(s *Store) {
		s.aliaser = a
	}
}

func WithCacheSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			cache, err := lru.New[string, *conversation.Conversation](n)
			if err == nil {
				s.cache = cache
			}
		}
	}
}

// DefaultDir returns ~/.parley/conversations, falling back to the current
// directory when the home directory cannot be determined.
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".parley", "conversations")
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, options ...Option) (*Store, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create conversation directory %s", dir)
	}

	cache, err := lru.New[string, *conversation.Conversation](DefaultCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conversation cache")
	}

	s := &Store{
		dir:   dir,
		cache: cache,
		locks: map[string]*sync.Mutex{},
	}
	for _, option := range options {
		option(s)
	}

	log.Info().Str("dir", dir).Msg("conversation storage initialized")
	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// LockConversation acquires the per-id mutex serializing the load-append-save
// sequence of a turn and returns the unlock function. Concurrent turns against
// distinct ids proceed independently.
func (s *Store) LockConversation(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Store) filePath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// CreateAndSave persists a brand-new conversation and returns its freshly
// generated id. The id is valid even when the write fails, so a persistence
// error never blocks the turn's outbound result.
func (s *Store) CreateAndSave(
	title string,
	messages []*conversation.Message,
	modelMetadata map[string]interface{},
) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	conv := &conversation.Conversation{
		ID:            id,
		Created:       now,
		Updated:       now,
		Title:         title,
		ModelMetadata: modelMetadata,
		Messages:      messages,
	}

	if err := s.writeRecord(conv); err != nil {
		return id, errors.Wrapf(err, "failed to save conversation %s", id)
	}

	s.finishSave(conv)
	log.Debug().Str("conversation_id", id).Int("messages", len(messages)).Msg("created conversation")
	return id, nil
}

// AppendAndSave overwrites the conversation's message list wholesale with the
// caller-supplied one (the caller loaded and appended in memory), refreshing
// updated and preserving created and title from the existing record. A
// non-empty title parameter overrides the stored one; continuations pass "".
// Failures are logged and reported as false, never raised.
func (s *Store) AppendAndSave(
	id string,
	messages []*conversation.Message,
	modelMetadata map[string]interface{},
	title string,
) bool {
	now := time.Now().UTC()

	existing, found := s.Load(id)
	conv := &conversation.Conversation{
		ID:       id,
		Created:  now,
		Updated:  now,
		Messages: messages,
	}
	if found {
		conv.Created = existing.Created
		conv.Title = existing.Title
		conv.ModelMetadata = mergeMetadata(existing.ModelMetadata, modelMetadata)
	} else {
		// Tolerant re-creation: the file vanished underneath us, created
		// defaults to now.
		conv.ModelMetadata = mergeMetadata(nil, modelMetadata)
	}
	if title != "" {
		conv.Title = title
	}

	if err := s.writeRecord(conv); err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("failed to save conversation")
		return false
	}

	s.finishSave(conv)
	log.Debug().Str("conversation_id", id).Int("messages", len(messages)).Msg("saved conversation")
	return true
}

// Load returns a conversation from the cache, or from disk on a miss,
// populating the cache. A missing file and an unreadable or unparseable file
// both map to not-found; they are distinguished only in the logs.
func (s *Store) Load(id string) (*conversation.Conversation, bool) {
	s.mu.Lock()
	cached, ok := s.cache.Get(id)
	s.mu.Unlock()
	if ok {
		log.Debug().Str("conversation_id", id).Int("messages", len(cached.Messages)).Msg("loaded conversation from cache")
		return cached, true
	}

	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("conversation_id", id).Msg("conversation not found")
		} else {
			log.Error().Err(err).Str("conversation_id", id).Msg("failed to read conversation")
		}
		return nil, false
	}

	conv := &conversation.Conversation{}
	if err := json.Unmarshal(data, conv); err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("failed to parse conversation")
		return nil, false
	}

	s.mu.Lock()
	s.cache.Add(id, conv)
	s.mu.Unlock()

	log.Debug().Str("conversation_id", id).Int("messages", len(conv.Messages)).Msg("loaded conversation from disk")
	return conv, true
}

// LastConversation returns the id of the most recent successful save in this
// process and a best-effort short display name for the model used. It is not
// reconstructed from disk across restarts; use ListRecent for that.
func (s *Store) LastConversation() (string, string) {
	s.mu.Lock()
	id, lastModel := s.lastID, s.lastModel
	s.mu.Unlock()

	return id, s.displayName(lastModel)
}

// ListRecent returns summaries of the most recently updated conversations,
// newest first. File modification time is used as a cheap pre-filter; the
// final ordering follows the records' own updated field.
func (s *Store) ListRecent(limit int) []Summary {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Error().Err(err).Str("dir", s.dir).Msg("failed to list conversation directory")
		return nil
	}

	type fileWithMtime struct {
		path  string
		mtime time.Time
	}
	files := make([]fileWithMtime, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("failed to stat conversation file")
			continue
		}
		files = append(files, fileWithMtime{
			path:  filepath.Join(s.dir, entry.Name()),
			mtime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime.After(files[j].mtime)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	summaries := make([]Summary, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			log.Warn().Err(err).Str("file", f.path).Msg("failed to read conversation file")
			continue
		}
		conv := &conversation.Conversation{}
		if err := json.Unmarshal(data, conv); err != nil {
			log.Warn().Err(err).Str("file", f.path).Msg("failed to parse conversation file")
			continue
		}

		summary := Summary{
			ID:        conv.ID,
			Title:     conv.Title,
			Created:   conv.Created,
			Updated:   conv.Updated,
			ModelUsed: s.displayName(conv.LastModelUsed()),
		}
		if summary.Title == "" {
			summary.Title = "[Untitled conversation]"
		}
		summaries = append(summaries, summary)
	}

	// Mtime can drift from the record's own timestamp; re-sort the small
	// final set by updated.
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Updated.After(summaries[j].Updated)
	})

	return summaries
}

func (s *Store) writeRecord(conv *conversation.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal conversation")
	}
	if err := os.WriteFile(s.filePath(conv.ID), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write conversation file")
	}
	return nil
}

// finishSave updates the write-through cache and the last-conversation pointer.
func (s *Store) finishSave(conv *conversation.Conversation) {
	lastModel := conv.LastModelUsed()

	s.mu.Lock()
	s.cache.Add(conv.ID, conv)
	s.lastID = conv.ID
	s.lastModel = lastModel
	s.mu.Unlock()
}

func (s *Store) displayName(fullName string) string {
	if fullName == "" {
		return ""
	}
	if s.aliaser != nil {
		if short := s.aliaser.ShortName(fullName); short != "" {
			return short
		}
	}
	return fullName
}

func mergeMetadata(existing, update map[string]interface{}) map[string]interface{} {
	if existing == nil && update == nil {
		return nil
	}
	merged := map[string]interface{}{}
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	return merged
}
