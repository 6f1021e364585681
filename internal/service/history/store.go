// Package history keeps the bounded, newest-first log of past detections.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"time"

	"autodocvision/internal/config"
	"autodocvision/internal/logger"
	"autodocvision/internal/metrics"
	"autodocvision/internal/model"
	"autodocvision/internal/repository"
)

const (
	timeLayout = "15:04:05"
	dateLayout = "02/01/2006"

	// ClearPrompt is shown before the history is wiped.
	ClearPrompt = "¿Seguro que quieres limpiar todo el historial?"
	// EmptyState is rendered when there are no entries.
	EmptyState = "📭 No hay detecciones aún"
)

var listTemplate = template.Must(template.New("history").Funcs(template.FuncMap{
	"percent": func(c float64, decimals int) string {
		return fmt.Sprintf("%.*f%%", decimals, c*100)
	},
}).Parse(`{{if not .}}<p class="empty-state">` + EmptyState + `</p>{{else}}{{range .}}
<div class="history-item">
	<div class="history-item-info">
		<div class="history-item-class">{{.Class}}</div>
		<div class="history-item-confidence">{{.Date}} {{.Timestamp}} - {{percent .Confidence 2}}</div>
	</div>
	<div class="history-item-badge">{{percent .Confidence 0}}</div>
</div>{{end}}{{end}}`))

// Renderer receives the rendered history markup.
type Renderer interface {
	SetHistoryHTML(html string)
}

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(prompt string) bool

// Store owns the history entries and their persisted copy.
type Store struct {
	mu       sync.Mutex
	entries  []model.HistoryEntry
	lastID   int64
	kv       repository.KeyValueStore
	renderer Renderer
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithMetrics reports the entry count on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates an empty store. Call Load to restore persisted entries.
func NewStore(kv repository.KeyValueStore, renderer Renderer, logger *logger.Logger, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the persisted entries. Unreadable data is logged and
// treated as an empty history.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, config.HistoryKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warning("Discarding unreadable history: %v", err)
		entries = nil
	}
	if len(entries) > config.HistoryLimit {
		entries = entries[:config.HistoryLimit]
	}

	s.mu.Lock()
	s.entries = entries
	for _, e := range entries {
		s.lastID = max(s.lastID, e.ID)
	}
	s.setGauge()
	s.mu.Unlock()

	s.logger.Info("Loaded %d history entries", len(entries))
	return nil
}

// Record prepends an entry for result, keeps the newest HistoryLimit
// entries, persists them and re-renders.
func (s *Store) Record(ctx context.Context, result *model.DetectionResult) (model.HistoryEntry, error) {
	now := s.now()

	s.mu.Lock()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	entry := model.HistoryEntry{
		ID:         id,
		Class:      result.Class,
		Confidence: result.Confidence,
		Timestamp:  now.Format(timeLayout),
		Date:       now.Format(dateLayout),
	}

	entries := make([]model.HistoryEntry, 0, min(len(s.entries)+1, config.HistoryLimit))
	entries = append(entries, entry)
	entries = append(entries, s.entries...)
	if len(entries) > config.HistoryLimit {
		entries = entries[:config.HistoryLimit]
	}
	s.entries = entries
	err := s.persist(ctx)
	s.setGauge()
	s.render()
	s.mu.Unlock()

	return entry, err
}

// Entries returns a copy of the entries, newest first.
func (s *Store) Entries() []model.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.HistoryEntry(nil), s.entries...)
}

// Render pushes the history markup to the renderer.
func (s *Store) Render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.render()
}

// render must be called with s.mu held, so concurrent changes reach the
// renderer in the order they were made.
func (s *Store) render() {
	html, err := RenderHTML(s.entries)
	if err != nil {
		s.logger.Error("Error rendering history: %v", err)
		return
	}
	s.renderer.SetHistoryHTML(html)
}

// Clear empties the history after confirm approves. It reports whether the
// history was cleared.
func (s *Store) Clear(ctx context.Context, confirm ConfirmFunc) (bool, error) {
	if confirm == nil || !confirm(ClearPrompt) {
		return false, nil
	}

	s.mu.Lock()
	s.entries = nil
	err := s.kv.Remove(ctx, config.HistoryKey)
	s.setGauge()
	s.render()
	s.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("remove history: %w", err)
	}
	return true, err
}

// Import merges entries into the history, newest first by id, persists the
// result capped to HistoryLimit and re-renders.
func (s *Store) Import(ctx context.Context, imported []model.HistoryEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]bool, len(s.entries))
	merged := append([]model.HistoryEntry(nil), s.entries...)
	for _, e := range s.entries {
		seen[e.ID] = true
	}
	added := 0
	for _, e := range imported {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		merged = append(merged, e)
		added++
	}

	sortNewestFirst(merged)
	if len(merged) > config.HistoryLimit {
		merged = merged[:config.HistoryLimit]
	}
	s.entries = merged
	for _, e := range merged {
		s.lastID = max(s.lastID, e.ID)
	}
	s.setGauge()
	err := s.persist(ctx)
	s.render()
	return added, err
}

// persist must be called with s.mu held.
func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.kv.Set(ctx, config.HistoryKey, data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *Store) setGauge() {
	if s.metrics != nil {
		s.metrics.HistoryEntries.Set(float64(len(s.entries)))
	}
}

// RenderHTML renders entries as the history list markup.
func RenderHTML(entries []model.HistoryEntry) (string, error) {
	var buf bytes.Buffer
	if err := listTemplate.Execute(&buf, entries); err != nil {
		return "", err
	}
	return buf.String(), nil
}
