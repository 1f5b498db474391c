package sqlite

const schema = `
-- Repositories table
CREATE TABLE IF NOT EXISTS repos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner TEXT NOT NULL,
    name TEXT NOT NULL,
    url TEXT NOT NULL UNIQUE,
    default_branch TEXT NOT NULL DEFAULT 'main',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_synced_at DATETIME
);

-- Issues table
CREATE TABLE IF NOT EXISTS issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repo_id INTEGER NOT NULL,
    number INTEGER NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL DEFAULT 'open',
    status TEXT NOT NULL DEFAULT 'NEW' CHECK(status IN ('NEW', 'SCOPED', 'EXECUTING', 'PR_OPEN', 'DONE', 'FAILED')),
    confidence INTEGER CHECK(confidence IS NULL OR (confidence >= 0 AND confidence <= 100)),
    plan_json TEXT,
    pr_url TEXT NOT NULL DEFAULT '',
    heal_attempts INTEGER NOT NULL DEFAULT 0 CHECK(heal_attempts >= 0),
    last_error TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (repo_id, number),
    FOREIGN KEY (repo_id) REFERENCES repos(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_issues_repo ON issues(repo_id);
CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
CREATE INDEX IF NOT EXISTS idx_issues_state ON issues(state);

-- Devin sessions table (append-only history per issue)
CREATE TABLE IF NOT EXISTS devin_sessions (
    id TEXT PRIMARY KEY,
    issue_id INTEGER NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('SCOPE', 'EXECUTE')),
    remote_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'PENDING' CHECK(status IN ('PENDING', 'RUNNING', 'COMPLETED', 'FAILED', 'TIMED_OUT')),
    prompt TEXT NOT NULL,
    result_payload TEXT NOT NULL DEFAULT '',
    fail_reason TEXT NOT NULL DEFAULT '',
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME,
    FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_issue ON devin_sessions(issue_id);
CREATE INDEX IF NOT EXISTS idx_sessions_kind ON devin_sessions(kind);
CREATE INDEX IF NOT EXISTS idx_sessions_remote ON devin_sessions(remote_id);

-- In-flight markers table
-- One row per issue with an active remote job. The PRIMARY KEY makes the
-- claim atomic: a second INSERT for the same issue fails, so two process
-- instances cannot start concurrent jobs for one issue.
CREATE TABLE IF NOT EXISTS inflight (
    issue_id INTEGER PRIMARY KEY,
    claimed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
);
`
