package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore stores artifacts in memory (test/dev only).
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data []byte
	meta ArtifactMeta
}

// NewMemoryStore creates an in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Put stores an artifact.
func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error) {
	_ = ctx
	if key == "" {
		return ArtifactRef{}, NewError(KindValidation, "artifact key is required", nil)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ArtifactRef{}, NewError(KindExport, "read artifact", err)
	}
	meta.Size = int64(len(data))
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, meta: meta}
	s.mu.Unlock()

	return ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact.
func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error) {
	_ = ctx
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ArtifactMeta{}, NewError(KindNotFound, fmt.Sprintf("artifact %q not found", key), nil)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.meta, nil
}

// Delete removes an artifact.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored artifacts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// MemoryTracker stores export history in memory (test/dev only).
type MemoryTracker struct {
	mu      sync.RWMutex
	records map[string]ExportRecord
	counter uint64
	Now     func() time.Time
}

// NewMemoryTracker creates an in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{records: make(map[string]ExportRecord), Now: time.Now}
}

// Start creates a new record.
func (t *MemoryTracker) Start(ctx context.Context, record ExportRecord) (string, error) {
	_ = ctx
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = StateRunning
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	t.mu.Lock()
	t.records[record.ID] = record
	t.mu.Unlock()
	return record.ID, nil
}

// Complete marks the export as completed.
func (t *MemoryTracker) Complete(ctx context.Context, id string, ref ArtifactRef) error {
	return t.update(ctx, id, func(record *ExportRecord) {
		record.State = StateCompleted
		record.Artifact = ref
		if record.Filename == "" {
			record.Filename = ref.Meta.Filename
		}
		record.CompletedAt = t.now()
	})
}

// Fail records failure state.
func (t *MemoryTracker) Fail(ctx context.Context, id string, err error) error {
	return t.update(ctx, id, func(record *ExportRecord) {
		record.State = StateFailed
		record.ErrorKind = KindFromError(err)
		if err != nil {
			record.Error = err.Error()
		}
		record.CompletedAt = t.now()
	})
}

// Status returns a record by ID.
func (t *MemoryTracker) Status(ctx context.Context, id string) (ExportRecord, error) {
	_ = ctx
	t.mu.RLock()
	record, ok := t.records[id]
	t.mu.RUnlock()
	if !ok {
		return ExportRecord{}, NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return record, nil
}

// List returns records matching a filter, newest first.
func (t *MemoryTracker) List(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error) {
	_ = ctx
	result := []ExportRecord{}

	t.mu.RLock()
	for _, record := range t.records {
		if filter.DocumentID != "" && record.DocumentID != filter.DocumentID {
			continue
		}
		if filter.State != "" && record.State != filter.State {
			continue
		}
		if !filter.Since.IsZero() && record.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && record.CreatedAt.After(filter.Until) {
			continue
		}
		result = append(result, record)
	}
	t.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Delete removes a record.
func (t *MemoryTracker) Delete(ctx context.Context, id string) error {
	_ = ctx
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[id]; !ok {
		return NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	delete(t.records, id)
	return nil
}

func (t *MemoryTracker) update(ctx context.Context, id string, fn func(*ExportRecord)) error {
	_ = ctx
	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[id]
	if !ok {
		return NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	fn(&record)
	t.records[id] = record
	return nil
}

func (t *MemoryTracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t *MemoryTracker) nextID() string {
	id := atomic.AddUint64(&t.counter, 1)
	return fmt.Sprintf("exp-%d", id)
}
