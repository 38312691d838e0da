package sqlite

// времена хранятся как INTEGER: микросекунды Unix в UTC
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	uuid TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	assigned_to INTEGER,
	estimated_time REAL NOT NULL CHECK (estimated_time > 0),
	status TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'in_progress', 'paused', 'completed', 'cancelled')),
	acceptance_status TEXT NOT NULL DEFAULT 'pending'
		CHECK (acceptance_status IN ('pending', 'accepted', 'rejected')),
	total_tracked_seconds INTEGER NOT NULL DEFAULT 0 CHECK (total_tracked_seconds >= 0),
	active_timer_started_at INTEGER,
	last_paused_at INTEGER,
	started_at INTEGER,
	completed_at INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER,
	version INTEGER NOT NULL DEFAULT 1,
	CHECK ((status = 'in_progress') = (active_timer_started_at IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS time_logs (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(uuid) ON DELETE CASCADE,
	user_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	occurred_at INTEGER NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	resulting_status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks(assigned_to);
CREATE INDEX IF NOT EXISTS idx_time_logs_task ON time_logs(task_id, occurred_at, id);
`
