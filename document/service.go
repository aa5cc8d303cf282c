package document

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

// OpenOptions configure a document opened by the service.
type OpenOptions struct {
	Theme       diagram.Theme
	Orientation diagram.Orientation
	Industry    string
	Language    locale.Language
}

// ExportOptions override the composer defaults for one export.
type ExportOptions struct {
	Geometry         export.Geometry
	FilenameTemplate string
}

// Service owns the open workspaces and records their exports.
type Service struct {
	Renderer  *diagram.Renderer
	Composer  *Composer
	Tracker   export.Tracker
	Store     export.ArtifactStore
	Metrics   export.MetricsHook
	Logger    export.Logger
	Retention export.Retention
	Now       func() time.Time
	NewID     func() string

	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// Open builds a workspace for resp and renders its diagram once.
func (s *Service) Open(ctx context.Context, resp strategy.Response, opts OpenOptions) (*Workspace, error) {
	if s == nil || s.Renderer == nil || s.Composer == nil {
		return nil, export.NewError(export.KindValidation, "document service is not configured", nil)
	}
	if !resp.Success {
		return nil, export.NewError(export.KindValidation, "strategy response was not successful", nil)
	}
	if strings.TrimSpace(resp.Strategy) == "" && strings.TrimSpace(resp.WorkflowDiagram) == "" {
		return nil, export.NewError(export.KindValidation, "strategy response has no content", nil)
	}

	composer := *s.Composer
	if composer.Logger == nil {
		composer.Logger = s.logger()
	}
	ws, err := NewWorkspace(resp, s.Renderer, composer, Options{
		ID:          s.newID(),
		Industry:    opts.Industry,
		Language:    opts.Language,
		Theme:       opts.Theme,
		Orientation: opts.Orientation,
		Created:     s.now(),
	})
	if err != nil {
		return nil, err
	}
	ws.SetMetrics(s.Metrics)

	if _, err := ws.Render(ctx, "", ""); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.workspaces == nil {
		s.workspaces = make(map[string]*Workspace)
	}
	s.workspaces[ws.ID] = ws
	s.mu.Unlock()

	s.logger().Infof("document %s opened language=%s", ws.ID, ws.Language)
	return ws, nil
}

// Get returns an open workspace.
func (s *Service) Get(id string) (*Workspace, error) {
	s.mu.RLock()
	ws, ok := s.workspaces[id]
	s.mu.RUnlock()
	if !ok {
		return nil, export.NewError(export.KindNotFound, fmt.Sprintf("document %q not found", id), nil)
	}
	return ws, nil
}

// List returns the open workspaces, oldest first.
func (s *Service) List() []*Workspace {
	s.mu.RLock()
	out := make([]*Workspace, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		out = append(out, ws)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Render re-renders the diagram of an open document.
func (s *Service) Render(ctx context.Context, id string, theme diagram.Theme, orientation diagram.Orientation) (diagram.Diagram, error) {
	ws, err := s.Get(id)
	if err != nil {
		return diagram.Diagram{}, err
	}
	return ws.Render(ctx, theme, orientation)
}

// Export exports an open document and records the attempt with the tracker.
func (s *Service) Export(ctx context.Context, id string, opts ExportOptions) (export.ExportRecord, error) {
	ws, err := s.Get(id)
	if err != nil {
		return export.ExportRecord{}, err
	}

	record := export.ExportRecord{
		DocumentID:   ws.ID,
		StrategyType: ws.Response.StrategyType,
		Industry:     ws.Industry,
		Language:     string(ws.Language),
	}
	exportID := ""
	if s.Tracker != nil {
		exportID, err = s.Tracker.Start(ctx, record)
		if err != nil {
			return export.ExportRecord{}, err
		}
	}

	ref, err := ws.Export(ctx, opts.Geometry, opts.FilenameTemplate)
	if err != nil {
		s.logger().Errorf("document %s export failed: %v", ws.ID, err)
		if s.Tracker != nil {
			if trackErr := s.Tracker.Fail(context.WithoutCancel(ctx), exportID, err); trackErr != nil {
				s.logger().Errorf("record export failure %s: %v", exportID, trackErr)
			}
		}
		return export.ExportRecord{}, err
	}

	if s.Tracker == nil {
		record.State = export.StateCompleted
		record.Filename = ref.Meta.Filename
		record.Artifact = ref
		record.CreatedAt = ref.Meta.CreatedAt
		record.CompletedAt = ref.Meta.CreatedAt
		return record, nil
	}
	if err := s.Tracker.Complete(ctx, exportID, ref); err != nil {
		s.logger().Errorf("record export completion %s: %v", exportID, err)
		cleanup := context.WithoutCancel(ctx)
		if trackErr := s.Tracker.Fail(cleanup, exportID, err); trackErr != nil {
			s.logger().Errorf("record export failure %s: %v", exportID, trackErr)
		}
		if s.Store != nil && ref.Key != "" {
			if delErr := s.Store.Delete(cleanup, ref.Key); delErr != nil {
				s.logger().Errorf("remove untracked artifact %s: %v", ref.Key, delErr)
			}
		}
		return export.ExportRecord{}, err
	}
	s.logger().Infof("document %s exported %s (%d pages)", ws.ID, ref.Key, ref.Meta.Pages)
	return s.Tracker.Status(ctx, exportID)
}

// Status returns one export record.
func (s *Service) Status(ctx context.Context, exportID string) (export.ExportRecord, error) {
	if s.Tracker == nil {
		return export.ExportRecord{}, export.NewError(export.KindNotImpl, "export tracking is disabled", nil)
	}
	return s.Tracker.Status(ctx, exportID)
}

// History lists export records, newest first.
func (s *Service) History(ctx context.Context, filter export.HistoryFilter) ([]export.ExportRecord, error) {
	if s.Tracker == nil {
		return nil, export.NewError(export.KindNotImpl, "export tracking is disabled", nil)
	}
	return s.Tracker.List(ctx, filter)
}

// Download opens the artifact of a completed export.
func (s *Service) Download(ctx context.Context, exportID string) (io.ReadCloser, export.ArtifactMeta, error) {
	if s.Store == nil {
		return nil, export.ArtifactMeta{}, export.NewError(export.KindNotImpl, "artifact store is not configured", nil)
	}
	record, err := s.Status(ctx, exportID)
	if err != nil {
		return nil, export.ArtifactMeta{}, err
	}
	if record.State != export.StateCompleted || record.Artifact.Key == "" {
		return nil, export.ArtifactMeta{}, export.NewError(export.KindNotFound, fmt.Sprintf("export %q has no artifact", exportID), nil)
	}
	return s.Store.Open(ctx, record.Artifact.Key)
}

// Cleanup deletes the artifacts and records of expired exports and
// returns how many were removed. A zero now means the current time.
func (s *Service) Cleanup(ctx context.Context, now time.Time) (int, error) {
	if s.Tracker == nil {
		return 0, export.NewError(export.KindNotImpl, "export tracking is disabled", nil)
	}
	if !s.Retention.Enabled() {
		return 0, nil
	}
	if now.IsZero() {
		now = s.now()
	}

	records, err := s.Tracker.List(ctx, export.HistoryFilter{})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, record := range records {
		if !s.Retention.Expired(record, now) {
			continue
		}
		if record.Artifact.Key != "" && s.Store != nil {
			if err := s.Store.Delete(ctx, record.Artifact.Key); err != nil {
				return deleted, err
			}
		}
		if deleter, ok := s.Tracker.(export.RecordDeleter); ok {
			if err := deleter.Delete(ctx, record.ID); err != nil {
				return deleted, err
			}
		}
		deleted++
	}
	if deleted > 0 {
		s.logger().Infof("cleanup removed %d expired exports", deleted)
	}
	return deleted, nil
}

// Close forgets an open document.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[id]; !ok {
		return export.NewError(export.KindNotFound, fmt.Sprintf("document %q not found", id), nil)
	}
	delete(s.workspaces, id)
	return nil
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) logger() export.Logger {
	if s.Logger == nil {
		return export.NopLogger{}
	}
	return s.Logger
}
