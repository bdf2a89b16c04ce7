// Package labels holds the image-identifier to label table used by the
// auto-match feature and the matcher that resolves photos against it.
package labels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dayuer/tgpilot/internal/utils"
)

// ErrEmptyID is returned when Add is called with a blank identifier or label.
var ErrEmptyID = errors.New("labels: image id and label must not be empty")

// Entry is a single id → label pair.
type Entry struct {
	ImageID string `json:"imageId"`
	Label   string `json:"label"`
}

// Mirror receives every mutation of the store. Used to keep an external copy
// (Redis) in sync with the file.
type Mirror interface {
	Put(ctx context.Context, imageID, label string) error
	All(ctx context.Context) (map[string]string, error)
}

// Store is an insertion-ordered, file-backed label table. Every mutation is
// persisted before Add returns.
type Store struct {
	path   string
	mirror Mirror
	logger *zap.Logger

	mu     sync.RWMutex
	order  []string
	labels map[string]string
}

// Option configures a Store.
type Option func(*Store)

// WithMirror attaches an external mirror.
func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewMemoryStore returns a store with no backing file. Add never persists.
func NewMemoryStore(entries ...Entry) *Store {
	s := &Store{labels: make(map[string]string), logger: zap.NewNop()}
	for _, e := range entries {
		s.set(e.ImageID, e.Label)
	}
	return s
}

// Open loads the JSON object at path. A missing file yields an empty store;
// the file is created on the first Add.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   utils.ExpandHome(path),
		labels: make(map[string]string),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := s.decode(data); err != nil {
			return nil, fmt.Errorf("labels: parse %s: %w", s.path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("Label file not found, starting empty", zap.String("path", s.path))
	default:
		return nil, fmt.Errorf("labels: read %s: %w", s.path, err)
	}

	if s.mirror != nil {
		s.mergeMirror(ctx)
	}

	s.logger.Info("Label store loaded", zap.String("path", s.path), zap.Int("entries", len(s.order)))
	return s, nil
}

// mergeMirror pulls in entries that exist only in the mirror. File entries win.
func (s *Store) mergeMirror(ctx context.Context) {
	remote, err := s.mirror.All(ctx)
	if err != nil {
		s.logger.Warn("Failed to read label mirror", zap.Error(err))
		return
	}
	added := 0
	for id, label := range remote {
		if _, ok := s.labels[id]; ok {
			continue
		}
		s.set(id, label)
		added++
	}
	if added > 0 {
		s.logger.Info("Merged labels from mirror", zap.Int("added", added))
	}
}

// decode reads a JSON object while keeping the key order of the file.
func (s *Store) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected a JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}
		var label string
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		s.set(key, label)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after JSON object")
	}
	return nil
}

// encode renders the table as an indented JSON object in insertion order.
func (s *Store) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, id := range s.order {
		k, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(s.labels[id])
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
	}
	if len(s.order) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// set must be called with mu held (or before the store is shared).
func (s *Store) set(id, label string) {
	if _, ok := s.labels[id]; !ok {
		s.order = append(s.order, id)
	}
	s.labels[id] = label
}

// Add inserts or updates an entry and persists the table.
// On a persistence failure the in-memory table is rolled back.
func (s *Store) Add(ctx context.Context, imageID, label string) error {
	imageID = strings.TrimSpace(imageID)
	label = strings.TrimSpace(label)
	if imageID == "" || label == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	prev, existed := s.labels[imageID]
	s.set(imageID, label)
	if err := s.persistLocked(); err != nil {
		if existed {
			s.labels[imageID] = prev
		} else {
			delete(s.labels, imageID)
			s.order = s.order[:len(s.order)-1]
		}
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, imageID, label); err != nil {
			s.logger.Warn("Failed to mirror label", zap.String("image_id", imageID), zap.Error(err))
		}
	}
	s.logger.Info("Label saved", zap.String("image_id", imageID), zap.String("label", label), zap.Bool("updated", existed))
	return nil
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := s.encode()
	if err != nil {
		return fmt.Errorf("labels: encode: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("labels: write %s: %w", s.path, err)
	}
	return nil
}

// Get returns the label stored under exactly imageID.
func (s *Store) Get(imageID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	label, ok := s.labels[imageID]
	return label, ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Path returns the backing file path, empty for memory stores.
func (s *Store) Path() string {
	return s.path
}

// Entries returns a snapshot of all entries in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Entry{ImageID: id, Label: s.labels[id]})
	}
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
// fn must not call back into the store.
func (s *Store) Each(fn func(imageID, label string) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if !fn(id, s.labels[id]) {
			return
		}
	}
}
