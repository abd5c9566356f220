package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mikeboe/prospect-research/pkg/database"
	"github.com/mikeboe/prospect-research/pkg/research"
	"github.com/mikeboe/prospect-research/pkg/vectorstore"
)

var (
	ErrJobNotFound     = errors.New("research job not found")
	ErrJobNotRunning   = errors.New("research job is not running")
	ErrSessionNotReady = errors.New("research job has no completed session")
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

type Service struct {
	DB     *database.PostgresDB
	Engine *research.Engine
	// Index is optional. Without it finished sessions are stored but not
	// embedded.
	Index  *vectorstore.LearningIndex
	Logger *slog.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

func NewService(db *database.PostgresDB, engine *research.Engine, index *vectorstore.LearningIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		DB:      db,
		Engine:  engine,
		Index:   index,
		Logger:  logger,
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}
}

type Job struct {
	ID           uuid.UUID       `json:"id"`
	ProspectID   string          `json:"prospect_id"`
	ProspectName string          `json:"prospect_name"`
	Status       string          `json:"status"`
	Prospect     json.RawMessage `json:"prospect"`
	Config       json.RawMessage `json:"config"`
	Session      json.RawMessage `json:"session,omitempty"`
	Error        *string         `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type CreateJobRequest struct {
	Prospect research.ProspectContext `json:"prospect"`
	Config   research.ResearchConfig  `json:"config"`
}

// Validate checks the request and assigns a prospect id when the caller
// did not send one.
func (r *CreateJobRequest) Validate() error {
	if r.Prospect.Name == "" {
		return errors.New("prospect.name is required")
	}
	if r.Prospect.ID == "" {
		r.Prospect.ID = uuid.NewString()
	}
	return nil
}

const jobColumns = `id, prospect_id, prospect_name, status, prospect, config, session, error, created_at, updated_at`

func scanJob(row pgx.Row) (*Job, error) {
	job := &Job{}
	err := row.Scan(&job.ID, &job.ProspectID, &job.ProspectName, &job.Status,
		&job.Prospect, &job.Config, &job.Session, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prospectJSON, err := json.Marshal(req.Prospect)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prospect: %w", err)
	}
	configJSON, err := json.Marshal(research.NewConfig(req.Config))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		INSERT INTO prospect_research_jobs (id, prospect_id, prospect_name, status, prospect, config)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING ` + jobColumns

	job, err := scanJob(s.DB.Pool.QueryRow(ctx, query, uuid.New(), req.Prospect.ID, req.Prospect.Name, prospectJSON, configJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// The job outlives the request that created it.
	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(job.ID)
		s.runWorker(runCtx, job.ID, req)
	}()

	return job, nil
}

// CancelJob stops a running job. The worker records the cancellation.
func (s *Service) CancelJob(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotRunning
	}
	cancel()
	return nil
}

// Shutdown cancels every running job and waits for the workers to record
// their final status.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) forget(id uuid.UUID) {
	s.mu.Lock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM prospect_research_jobs WHERE id = $1`
	job, err := scanJob(s.DB.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the newest jobs without their session payloads.
func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, prospect_id, prospect_name, status, prospect, config, NULL::jsonb, error, created_at, updated_at
		FROM prospect_research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// GetSession decodes the stored session of a completed job.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*research.ResearchSession, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeSession(job.Session)
}

// LatestSession returns the most recent completed session for a prospect,
// or nil when there is none.
func (s *Service) LatestSession(ctx context.Context, prospectID string) (*research.ResearchSession, error) {
	query := `
		SELECT session FROM prospect_research_jobs
		WHERE prospect_id = $1 AND status = 'completed' AND session IS NOT NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var raw json.RawMessage
	err := s.DB.Pool.QueryRow(ctx, query, prospectID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeSession(raw)
}

func decodeSession(raw json.RawMessage) (*research.ResearchSession, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrSessionNotReady
	}
	var session research.ResearchSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// InsertLog satisfies LogSink.
func (s *Service) InsertLog(ctx context.Context, jobID uuid.UUID, row LogRow) error {
	_, err := s.DB.Pool.Exec(ctx,
		"INSERT INTO research_logs (job_id, timestamp, level, message, metadata) VALUES ($1, $2, $3, $4, $5)",
		jobID, row.Time, row.Level, row.Message, row.Metadata)
	return err
}

type EventEntry struct {
	ID            int64           `json:"id"`
	State         string          `json:"state"`
	ResearchPhase string          `json:"research_phase,omitempty"`
	Message       string          `json:"message"`
	Payload       json.RawMessage `json:"payload"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (s *Service) GetJobEvents(ctx context.Context, jobID uuid.UUID) ([]EventEntry, error) {
	query := `
		SELECT id, state, COALESCE(research_phase, ''), message, payload, timestamp
		FROM research_events
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []EventEntry
	for rows.Next() {
		var e EventEntry
		if err := rows.Scan(&e.ID, &e.State, &e.ResearchPhase, &e.Message, &e.Payload, &e.Timestamp); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Service) insertEvent(jobID uuid.UUID, ev research.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	var phase *string
	if ev.ResearchPhase != "" {
		p := string(ev.ResearchPhase)
		phase = &p
	}
	_, err = s.DB.Pool.Exec(context.Background(),
		"INSERT INTO research_events (job_id, state, research_phase, message, payload, timestamp) VALUES ($1, $2, $3, $4, $5, $6)",
		jobID, string(ev.Phase), phase, ev.Message, payload, ev.Timestamp)
	return err
}

func (s *Service) setStatus(jobID uuid.UUID, status string, session []byte, reason *string) {
	_, err := s.DB.Pool.Exec(context.Background(),
		"UPDATE prospect_research_jobs SET status = $2, session = COALESCE($3, session), error = $4, updated_at = NOW() WHERE id = $1",
		jobID, status, session, reason)
	if err != nil {
		s.Logger.Error("Failed to update job status", "job_id", jobID, "status", status, "error", err)
	}
}

func (s *Service) runWorker(ctx context.Context, jobID uuid.UUID, req CreateJobRequest) {
	s.setStatus(jobID, StatusRunning, nil, nil)

	dbLogger := slog.New(NewDBLogHandler(s, jobID))

	// Each job gets its own engine copy so the logger override stays local.
	engine := *s.Engine
	engine.Logger = dbLogger

	onProgress := func(ev research.ProgressEvent) {
		if err := s.insertEvent(jobID, ev); err != nil {
			s.Logger.Error("Failed to store progress event", "job_id", jobID, "error", err)
		}
	}

	session, err := engine.Execute(ctx, req.Prospect, req.Config, onProgress)
	if err != nil {
		status := StatusFailed
		if errors.Is(err, context.Canceled) {
			status = StatusCancelled
		}
		reason := err.Error()
		dbLogger.Error("Research job ended", "status", status, "error", err)
		s.setStatus(jobID, status, nil, &reason)
		return
	}

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		reason := fmt.Sprintf("failed to marshal session: %v", err)
		dbLogger.Error(reason)
		s.setStatus(jobID, StatusFailed, nil, &reason)
		return
	}
	s.setStatus(jobID, StatusCompleted, sessionJSON, nil)

	if s.Index == nil {
		return
	}
	// Indexing failures leave the stored session intact.
	n, err := s.Index.IndexSession(context.Background(), session)
	if err != nil {
		dbLogger.Error("Failed to index learnings", "error", err)
		return
	}
	dbLogger.Info("Indexed learnings", "count", n)
}
