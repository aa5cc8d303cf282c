package trackerbun

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-workflow-export/export"
)

// Tracker stores export history in a Bun-backed database.
type Tracker struct {
	DB          *bun.DB
	Now         func() time.Time
	IDGenerator func() string
}

// NewTracker creates a Bun-backed tracker.
func NewTracker(db *bun.DB) *Tracker {
	return &Tracker{DB: db, Now: time.Now, IDGenerator: uuid.NewString}
}

// EnsureSchema creates the history table when it does not exist.
func (t *Tracker) EnsureSchema(ctx context.Context) error {
	if err := t.ready(); err != nil {
		return err
	}
	if _, err := t.DB.NewCreateTable().Model((*recordModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return export.NewError(export.KindInternal, "create export history table", err)
	}
	_, err := t.DB.NewCreateIndex().
		Model((*recordModel)(nil)).
		Index("export_records_document_idx").
		IfNotExists().
		Column("document_id", "created_at").
		Exec(ctx)
	if err != nil {
		return export.NewError(export.KindInternal, "create export history index", err)
	}
	return nil
}

// Start creates a running export record.
func (t *Tracker) Start(ctx context.Context, record export.ExportRecord) (string, error) {
	if err := t.ready(); err != nil {
		return "", err
	}
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = export.StateRunning
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	model, err := modelFromRecord(record)
	if err != nil {
		return "", err
	}
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", export.NewError(export.KindInternal, "insert export record", err)
	}
	return record.ID, nil
}

// Complete marks the export as completed and stores its artifact reference.
func (t *Tracker) Complete(ctx context.Context, id string, ref export.ArtifactRef) error {
	if err := t.ready(); err != nil {
		return err
	}
	if id == "" {
		return export.NewError(export.KindValidation, "export ID is required", nil)
	}
	meta, err := json.Marshal(ref.Meta)
	if err != nil {
		return export.NewError(export.KindInternal, "encode artifact metadata", err)
	}

	query := t.DB.NewUpdate().Model((*recordModel)(nil)).
		Set("state = ?", export.StateCompleted).
		Set("artifact_key = ?", ref.Key).
		Set("artifact_meta = ?", meta).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Where("id = ?", id)
	if ref.Meta.Filename != "" {
		query = query.Set("filename = ?", ref.Meta.Filename)
	}
	return t.exec(ctx, id, query)
}

// Fail marks the export as failed and keeps the error kind and message.
func (t *Tracker) Fail(ctx context.Context, id string, cause error) error {
	if err := t.ready(); err != nil {
		return err
	}
	if id == "" {
		return export.NewError(export.KindValidation, "export ID is required", nil)
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}

	query := t.DB.NewUpdate().Model((*recordModel)(nil)).
		Set("state = ?", export.StateFailed).
		Set("error_kind = ?", string(export.KindFromError(cause))).
		Set("error = ?", message).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Where("id = ?", id)
	return t.exec(ctx, id, query)
}

// Status returns a record by ID.
func (t *Tracker) Status(ctx context.Context, id string) (export.ExportRecord, error) {
	if err := t.ready(); err != nil {
		return export.ExportRecord{}, err
	}
	if id == "" {
		return export.ExportRecord{}, export.NewError(export.KindValidation, "export ID is required", nil)
	}

	model := new(recordModel)
	err := t.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.ExportRecord{}, export.NewError(export.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
		}
		return export.ExportRecord{}, export.NewError(export.KindInternal, "load export record", err)
	}
	return model.toRecord()
}

// List returns records matching a filter, newest first.
func (t *Tracker) List(ctx context.Context, filter export.HistoryFilter) ([]export.ExportRecord, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}

	models := make([]recordModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.DocumentID != "" {
		query = query.Where("document_id = ?", filter.DocumentID)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at <= ?", filter.Until)
	}
	query = query.Order("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, export.NewError(export.KindInternal, "list export records", err)
	}

	records := make([]export.ExportRecord, 0, len(models))
	for _, model := range models {
		record, err := model.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Delete removes a record from the history.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	if err := t.ready(); err != nil {
		return err
	}
	if id == "" {
		return export.NewError(export.KindValidation, "export ID is required", nil)
	}
	return t.exec(ctx, id, t.DB.NewDelete().Model((*recordModel)(nil)).Where("id = ?", id))
}

type execer interface {
	Exec(ctx context.Context, dest ...any) (sql.Result, error)
}

func (t *Tracker) exec(ctx context.Context, id string, query execer) error {
	res, err := query.Exec(ctx)
	if err != nil {
		return export.NewError(export.KindInternal, "update export record", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return export.NewError(export.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return nil
}

type recordModel struct {
	bun.BaseModel `bun:"table:export_records,alias:export_records"`

	ID           string    `bun:",pk"`
	DocumentID   string    `bun:"document_id,notnull"`
	Filename     string    `bun:"filename"`
	StrategyType string    `bun:"strategy_type"`
	Industry     string    `bun:"industry"`
	Language     string    `bun:"language"`
	State        string    `bun:"state,notnull"`
	ArtifactKey  string    `bun:"artifact_key"`
	ArtifactMeta []byte    `bun:"artifact_meta"`
	ErrorKind    string    `bun:"error_kind"`
	Error        string    `bun:"error"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	CompletedAt  time.Time `bun:"completed_at,nullzero"`
}

func modelFromRecord(record export.ExportRecord) (recordModel, error) {
	meta, err := json.Marshal(record.Artifact.Meta)
	if err != nil {
		return recordModel{}, export.NewError(export.KindInternal, "encode artifact metadata", err)
	}
	return recordModel{
		ID:           record.ID,
		DocumentID:   record.DocumentID,
		Filename:     record.Filename,
		StrategyType: record.StrategyType,
		Industry:     record.Industry,
		Language:     record.Language,
		State:        string(record.State),
		ArtifactKey:  record.Artifact.Key,
		ArtifactMeta: meta,
		ErrorKind:    string(record.ErrorKind),
		Error:        record.Error,
		CreatedAt:    record.CreatedAt,
		CompletedAt:  record.CompletedAt,
	}, nil
}

func (m recordModel) toRecord() (export.ExportRecord, error) {
	record := export.ExportRecord{
		ID:           m.ID,
		DocumentID:   m.DocumentID,
		Filename:     m.Filename,
		StrategyType: m.StrategyType,
		Industry:     m.Industry,
		Language:     m.Language,
		State:        export.ExportState(m.State),
		Artifact:     export.ArtifactRef{Key: m.ArtifactKey},
		ErrorKind:    export.ErrorKind(m.ErrorKind),
		Error:        m.Error,
		CreatedAt:    m.CreatedAt,
		CompletedAt:  m.CompletedAt,
	}
	if len(m.ArtifactMeta) > 0 {
		if err := json.Unmarshal(m.ArtifactMeta, &record.Artifact.Meta); err != nil {
			return export.ExportRecord{}, export.NewError(export.KindInternal, "decode artifact metadata", err)
		}
	}
	return record, nil
}

func (t *Tracker) ready() error {
	if t == nil || t.DB == nil {
		return export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	return nil
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tracker) nextID() string {
	if t.IDGenerator != nil {
		return t.IDGenerator()
	}
	return uuid.NewString()
}
