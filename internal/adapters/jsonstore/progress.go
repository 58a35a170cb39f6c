package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

// entry est le format persisté: { "<unitId>": { "completed": bool, "completedAt": <unix ms> } }.
type entry struct {
	Completed   bool   `json:"completed"`
	CompletedAt int64  `json:"completedAt"`
	Source      string `json:"source,omitempty"`
}

// ProgressStore stocke la progression dans un unique fichier JSON.
// Le fichier est relu à chaque opération: un autre process peut l'avoir modifié.
type ProgressStore struct {
	mu   sync.Mutex
	path string
}

func NewProgressStore(path string) *ProgressStore {
	return &ProgressStore{path: path}
}

func (s *ProgressStore) Path() string { return s.path }

func (s *ProgressStore) Get(ctx context.Context, contentUnitID string) (domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	e, ok := entries[contentUnitID]
	if !ok || !e.Completed {
		return domain.ProgressRecord{}, ports.ErrNotFound
	}
	return toRecord(contentUnitID, e), nil
}

func (s *ProgressStore) List(ctx context.Context) ([]domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProgressRecord, 0, len(entries))
	for id, e := range entries {
		if !e.Completed {
			continue
		}
		out = append(out, toRecord(id, e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentUnitID < out[j].ContentUnitID })
	return out, nil
}

func (s *ProgressStore) MarkCompleted(ctx context.Context, contentUnitID string, at time.Time, source domain.CompletionSource) (domain.ProgressRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return domain.ProgressRecord{}, false, err
	}
	if e, ok := entries[contentUnitID]; ok && e.Completed {
		return toRecord(contentUnitID, e), false, nil
	}

	e := entry{Completed: true, CompletedAt: at.UTC().UnixMilli(), Source: string(source)}
	entries[contentUnitID] = e
	if err := s.save(entries); err != nil {
		return domain.ProgressRecord{}, false, err
	}
	return toRecord(contentUnitID, e), true, nil
}

// load: fichier absent ou illisible = aucune progression. Seules les erreurs d'accès remontent.
func (s *ProgressStore) load() (map[string]entry, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]entry{}, nil
		}
		return nil, fmt.Errorf("read %s: %w: %v", s.path, ports.ErrPersistenceUnavailable, err)
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return map[string]entry{}, nil
	}
	out := make(map[string]entry, len(raw))
	for id, msg := range raw {
		var e entry
		if err := json.Unmarshal(msg, &e); err != nil {
			continue
		}
		out[id] = e
	}
	return out, nil
}

// save écrit dans un fichier temporaire puis renomme: pas de fichier à moitié écrit.
func (s *ProgressStore) save(entries map[string]entry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w: %v", dir, ports.ErrPersistenceUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w: %v", ports.ErrPersistenceUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w: %v", tmpName, ports.ErrPersistenceUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w: %v", tmpName, ports.ErrPersistenceUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w: %v", s.path, ports.ErrPersistenceUnavailable, err)
	}
	return nil
}

func toRecord(id string, e entry) domain.ProgressRecord {
	rec := domain.ProgressRecord{ContentUnitID: id, Completed: e.Completed, Source: domain.CompletionSource(e.Source)}
	if e.CompletedAt > 0 {
		rec.CompletedAt = time.UnixMilli(e.CompletedAt).UTC()
	}
	return rec
}
