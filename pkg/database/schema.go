package database

import (
	"context"
	"fmt"
)

func (db *PostgresDB) InitSchema(ctx context.Context) error {
	// 1. Prospect research jobs. The finished session is stored whole.
	jobsQuery := `
		CREATE TABLE IF NOT EXISTS prospect_research_jobs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			prospect_id TEXT NOT NULL,
			prospect_name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			prospect JSONB NOT NULL,
			config JSONB,
			session JSONB,
			error TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, jobsQuery); err != nil {
		return fmt.Errorf("failed to create prospect_research_jobs table: %w", err)
	}

	// 2. Progress events, in emission order
	eventsQuery := `
		CREATE TABLE IF NOT EXISTS research_events (
			id BIGSERIAL PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES prospect_research_jobs(id) ON DELETE CASCADE,
			state TEXT NOT NULL,
			research_phase TEXT,
			message TEXT NOT NULL,
			payload JSONB NOT NULL,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, eventsQuery); err != nil {
		return fmt.Errorf("failed to create research_events table: %w", err)
	}

	// 3. Engine logs
	logsQuery := `
		CREATE TABLE IF NOT EXISTS research_logs (
			id SERIAL PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES prospect_research_jobs(id) ON DELETE CASCADE,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB
		);
	`
	if _, err := db.Pool.Exec(ctx, logsQuery); err != nil {
		return fmt.Errorf("failed to create research_logs table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_research_events_job_id ON research_events(job_id)",
		"CREATE INDEX IF NOT EXISTS idx_research_logs_job_id ON research_logs(job_id)",
		"CREATE INDEX IF NOT EXISTS idx_prospect_research_jobs_created_at ON prospect_research_jobs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_prospect_research_jobs_prospect_id ON prospect_research_jobs(prospect_id)",
	}
	for _, q := range indexes {
		if _, err := db.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// 4. Briefing conversations
	convQuery := `
		CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title TEXT NOT NULL DEFAULT 'New Conversation',
			prospect_id TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, convQuery); err != nil {
		return fmt.Errorf("failed to create conversations table: %w", err)
	}

	// 5. Messages
	msgQuery := `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, msgQuery); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)"); err != nil {
		return fmt.Errorf("failed to create index on messages: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC)"); err != nil {
		return fmt.Errorf("failed to create index on conversations: %w", err)
	}

	return nil
}
