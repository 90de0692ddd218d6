package conversation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sims1253/mcp-llm-bridge/types"
)

const metadataDirName = ".metadata"

// StatusActive is the lifecycle status of a live conversation.
const StatusActive = "active"

// CreateOptions configures a new conversation.
type CreateOptions struct {
	// ID is an optional caller-supplied conversation ID. Generated when
	// empty.
	ID string
	// InitialMessage seeds the log with one user message when non-empty.
	InitialMessage string
	Topic          string
	Tags           []string
}

// FileStore is the file-backed conversation store. The on-disk
// representation is the sole source of truth; no in-memory cache is
// authoritative.
type FileStore struct {
	dir     string
	metaDir string
	logger  *zap.Logger

	// locks is the per-conversation lock arena, keyed by sanitized ID and
	// created lazily. Held only around the read-modify-write of the log and
	// metadata, never across adapter invocations.
	locks sync.Map // string -> *sync.Mutex
}

// NewFileStore creates a store rooted at dir, creating the directory
// layout as needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	metaDir := filepath.Join(dir, metadataDirName)
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return nil, types.NewError(types.ErrStorageError, "create conversation directory").WithCause(err)
	}

	return &FileStore{
		dir:     dir,
		metaDir: metaDir,
		logger:  logger.With(zap.String("component", "conversation_store")),
	}, nil
}

func (s *FileStore) lock(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *FileStore) logPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) metaPath(id string) string {
	return filepath.Join(s.metaDir, id+".json")
}

// sanitize validates an externally supplied ID before any filesystem use.
func sanitize(id string) (string, error) {
	safe := SanitizeID(id)
	if safe == "" {
		return "", types.Errorf(types.ErrInvalidInput, "invalid conversation id %q", id)
	}
	return safe, nil
}

// Exists reports whether a conversation with the given ID is persisted.
// Unsafe IDs report false rather than erroring.
func (s *FileStore) Exists(id string) bool {
	safe := SanitizeID(id)
	if safe == "" {
		return false
	}
	_, err := os.Stat(s.logPath(safe))
	return err == nil
}

// Create persists a new, empty (or one-message) conversation and its
// metadata, returning the conversation ID.
func (s *FileStore) Create(ctx context.Context, opts CreateOptions) (string, error) {
	id := opts.ID
	if id == "" {
		id = GenerateID()
	}

	safe, err := sanitize(id)
	if err != nil {
		return "", err
	}

	mu := s.lock(safe)
	mu.Lock()
	defer mu.Unlock()

	if _, err := os.Stat(s.logPath(safe)); err == nil {
		return "", types.Errorf(types.ErrInvalidInput, "conversation %s already exists", safe)
	}

	if err := s.writeLog(safe, []types.Message{}); err != nil {
		return "", err
	}

	now := time.Now()
	meta := &types.Metadata{
		ID:           safe,
		CreatedAt:    now,
		UpdatedAt:    now,
		Participants: []string{},
		Topic:        opts.Topic,
		Tags:         opts.Tags,
		Status:       StatusActive,
	}

	if opts.InitialMessage != "" {
		msg := types.NewUserMessage(opts.InitialMessage)
		msg.Seq = 1
		if err := s.writeLog(safe, []types.Message{msg}); err != nil {
			return "", err
		}
		meta.MessageCount = 1
		meta.Participants = []string{msg.Speaker()}
	}

	if err := s.writeMetadata(safe, meta); err != nil {
		return "", err
	}

	s.logger.Debug("created conversation",
		zap.String("conversation_id", safe),
		zap.Bool("seeded", opts.InitialMessage != ""))

	return safe, nil
}

// Append assigns the next sequence number to msg, persists it, and updates
// the metadata record, all under the per-conversation lock. Returns the
// assigned sequence number.
func (s *FileStore) Append(ctx context.Context, id string, msg types.Message) (uint64, error) {
	safe, err := sanitize(id)
	if err != nil {
		return 0, err
	}

	mu := s.lock(safe)
	mu.Lock()
	defer mu.Unlock()

	messages, err := s.readLog(safe)
	if err != nil {
		return 0, err
	}

	msg.Seq = uint64(len(messages)) + 1
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	messages = append(messages, msg)

	if err := s.writeLog(safe, messages); err != nil {
		return 0, err
	}

	if err := s.refreshMetadata(safe, messages); err != nil {
		return 0, err
	}

	s.logger.Debug("appended message",
		zap.String("conversation_id", safe),
		zap.String("speaker", msg.Speaker()),
		zap.Uint64("seq", msg.Seq))

	return msg.Seq, nil
}

// Read returns the full ordered message history of a conversation.
func (s *FileStore) Read(ctx context.Context, id string) ([]types.Message, error) {
	safe, err := sanitize(id)
	if err != nil {
		return nil, err
	}
	return s.readLog(safe)
}

// ReadRange returns messages[start:end] (half-open, clamped to the log
// bounds). Negative indices count from the end of the log.
func (s *FileStore) ReadRange(ctx context.Context, id string, start, end int) ([]types.Message, error) {
	messages, err := s.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	n := len(messages)
	if start < 0 {
		start = n + start
	}
	if end < 0 {
		end = n + end
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start >= end {
		return []types.Message{}, nil
	}
	return messages[start:end], nil
}

// Metadata returns the cached metadata record for a conversation,
// regenerating it from the message log when the sidecar record is missing.
func (s *FileStore) Metadata(ctx context.Context, id string) (*types.Metadata, error) {
	safe, err := sanitize(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.metaPath(safe))
	if os.IsNotExist(err) {
		return s.regenerateMetadata(safe)
	}
	if err != nil {
		return nil, types.Errorf(types.ErrStorageError, "read metadata for %s", safe).WithCause(err)
	}

	var meta types.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, types.Errorf(types.ErrCorruptData, "parse metadata for %s", safe).WithCause(err)
	}
	return &meta, nil
}

// List returns metadata for up to limit conversations, most recently
// updated first. limit <= 0 returns all conversations.
func (s *FileStore) List(ctx context.Context, limit int) ([]*types.Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, types.NewError(types.ErrStorageError, "list conversation directory").WithCause(err)
	}

	var result []*types.Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		meta, err := s.Metadata(ctx, id)
		if err != nil {
			s.logger.Warn("skipping unreadable conversation metadata",
				zap.String("conversation_id", id), zap.Error(err))
			continue
		}
		result = append(result, meta)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *FileStore) readLog(id string) ([]types.Message, error) {
	data, err := os.ReadFile(s.logPath(id))
	if os.IsNotExist(err) {
		return nil, types.Errorf(types.ErrNotFound, "conversation %s does not exist", id)
	}
	if err != nil {
		return nil, types.Errorf(types.ErrStorageError, "read conversation %s", id).WithCause(err)
	}

	var messages []types.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, types.Errorf(types.ErrCorruptData, "parse conversation %s", id).WithCause(err)
	}
	if messages == nil {
		messages = []types.Message{}
	}
	return messages, nil
}

// writeLog persists the full message array via temp file plus rename so
// concurrent readers never see a partial write.
func (s *FileStore) writeLog(id string, messages []types.Message) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return types.Errorf(types.ErrStorageError, "encode conversation %s", id).WithCause(err)
	}
	data = append(data, '\n')

	path := s.logPath(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return types.Errorf(types.ErrStorageError, "write conversation %s", id).WithCause(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return types.Errorf(types.ErrStorageError, "commit conversation %s", id).WithCause(err)
	}
	return nil
}

func (s *FileStore) writeMetadata(id string, meta *types.Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return types.Errorf(types.ErrStorageError, "encode metadata for %s", id).WithCause(err)
	}
	data = append(data, '\n')

	path := s.metaPath(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return types.Errorf(types.ErrStorageError, "write metadata for %s", id).WithCause(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return types.Errorf(types.ErrStorageError, "commit metadata for %s", id).WithCause(err)
	}
	return nil
}

// refreshMetadata recomputes the cached metadata record from the message
// log after an append. Caller holds the conversation lock.
func (s *FileStore) refreshMetadata(id string, messages []types.Message) error {
	meta, err := s.Metadata(context.Background(), id)
	if err != nil {
		if types.IsCode(err, types.ErrCorruptData) {
			// Sidecar is a cache; rebuild rather than fail the append.
			return s.rebuildAndWrite(id, messages)
		}
		return err
	}

	meta.UpdatedAt = time.Now()
	meta.MessageCount = len(messages)
	meta.Participants = mergeParticipants(meta.Participants, messages)
	return s.writeMetadata(id, meta)
}

// regenerateMetadata derives a metadata record for an existing conversation
// whose sidecar record is missing.
func (s *FileStore) regenerateMetadata(id string) (*types.Metadata, error) {
	messages, err := s.readLog(id)
	if err != nil {
		return nil, err
	}
	if err := s.rebuildAndWrite(id, messages); err != nil {
		return nil, err
	}
	return s.Metadata(context.Background(), id)
}

func (s *FileStore) rebuildAndWrite(id string, messages []types.Message) error {
	now := time.Now()
	meta := &types.Metadata{
		ID:           id,
		CreatedAt:    now,
		UpdatedAt:    now,
		MessageCount: len(messages),
		Participants: mergeParticipants(nil, messages),
		Status:       StatusActive,
	}
	if len(messages) > 0 {
		meta.CreatedAt = messages[0].Timestamp
		meta.UpdatedAt = messages[len(messages)-1].Timestamp
		meta.Topic = truncate(messages[0].Content, 100)
	}
	return s.writeMetadata(id, meta)
}

func mergeParticipants(existing []string, messages []types.Message) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing))
	for _, p := range existing {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, m := range messages {
		sp := m.Speaker()
		if !seen[sp] {
			seen[sp] = true
			out = append(out, sp)
		}
	}
	return out
}

// truncate cuts s to at most n runes, never splitting a multi-byte rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
