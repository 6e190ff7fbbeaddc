package postgresql

// migrations returns the schema migrations in version order. The events table
// enforces per-run sequence uniqueness so the append log stays consistent
// even if two writers race; documents are stored as JSONB.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT NOT NULL,
				version INTEGER NOT NULL,
				latest BOOLEAN NOT NULL DEFAULT FALSE,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (id, version)
			);
			CREATE UNIQUE INDEX IF NOT EXISTS workflows_latest_idx
				ON workflows (id) WHERE latest;

			CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				workflow_version INTEGER NOT NULL,
				status TEXT NOT NULL,
				record JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS runs_workflow_idx ON runs (workflow_id, created_at);

			CREATE TABLE IF NOT EXISTS node_executions (
				id TEXT PRIMARY KEY,
				run_id TEXT NOT NULL,
				node_id TEXT NOT NULL,
				record JSONB NOT NULL
			);
			CREATE INDEX IF NOT EXISTS node_executions_run_idx ON node_executions (run_id);

			CREATE TABLE IF NOT EXISTS confirmations (
				confirm_id TEXT PRIMARY KEY,
				run_id TEXT NOT NULL,
				node_id TEXT NOT NULL,
				decision TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				resolved_at TIMESTAMP WITH TIME ZONE
			);
			CREATE INDEX IF NOT EXISTS confirmations_run_idx ON confirmations (run_id, created_at);

			CREATE TABLE IF NOT EXISTS events (
				run_id TEXT NOT NULL,
				sequence BIGINT NOT NULL,
				type TEXT NOT NULL,
				node_id TEXT,
				payload JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (run_id, sequence)
			);

			CREATE TABLE IF NOT EXISTS schedules (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				record JSONB NOT NULL,
				next_due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE
			);
			CREATE INDEX IF NOT EXISTS schedules_due_idx ON schedules (next_due_at) WHERE active;
		`,
	}
}
