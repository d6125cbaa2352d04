package store

// Table name constants, kept centralized so every query site shares one
// source of truth instead of repeating string literals: one named constant
// per table, used everywhere a table is touched.
const (
	tableBlocksRC       = "blocks_rc"
	tableBlocksAH       = "blocks_ah"
	tableEventsRC       = "events_rc"
	tableEventsAH       = "events_ah"
	tableEras           = "eras"
	tableSessions       = "sessions"
	tableElectionPhases = "election_phases"
	tableElectionScores = "election_scores"
	tableWarnings       = "warnings"
	tableIndexerState   = "indexer_state"
	tableReimport       = "reimport_requests"
	tableMigrations     = "schema_migrations"
)

// schemaVersion is the latest migration version this binary knows how to
// apply. Each entry in migrations is applied at most once, recorded in
// schema_migrations, the way a schema-version log gates idempotent startup
// migration.
const schemaVersion = 1

// migrations holds one SQL batch per schema version, applied in order on a
// fresh or upgrading database. Adding a new migration means appending a new
// entry and bumping schemaVersion; existing entries are never edited.
var migrations = []string{
	// version 1: initial schema.
	`
CREATE TABLE IF NOT EXISTS blocks_rc (
	block_number INTEGER PRIMARY KEY,
	timestamp    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS blocks_ah (
	block_number INTEGER PRIMARY KEY,
	timestamp    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events_rc (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	block_number INTEGER NOT NULL REFERENCES blocks_rc(block_number) ON DELETE CASCADE,
	event_id     TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	data         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_rc_block ON events_rc(block_number);
CREATE INDEX IF NOT EXISTS idx_events_rc_type ON events_rc(event_type);

CREATE TABLE IF NOT EXISTS events_ah (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	block_number INTEGER NOT NULL REFERENCES blocks_ah(block_number) ON DELETE CASCADE,
	event_id     TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	data         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_ah_block ON events_ah(block_number);
CREATE INDEX IF NOT EXISTS idx_events_ah_type ON events_ah(event_type);

CREATE TABLE IF NOT EXISTS eras (
	era_id               INTEGER PRIMARY KEY,
	session_start        INTEGER NOT NULL,
	session_end          INTEGER,
	start_time           INTEGER NOT NULL,
	inflation_total      TEXT,
	inflation_validators TEXT,
	inflation_treasury   TEXT,
	validators_elected   INTEGER,
	CHECK (session_end IS NULL OR session_end >= session_start)
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id             INTEGER PRIMARY KEY,
	block_number           INTEGER REFERENCES blocks_ah(block_number) ON DELETE SET NULL,
	activation_timestamp   INTEGER,
	active_era_id          INTEGER,
	planned_era_id         INTEGER,
	validator_points_total INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_active_era ON sessions(active_era_id);

-- election_phases.era_id is a forward reference: phases for era E are
-- emitted while only era E-1's row exists, so no FK is declared (same rule
-- as sessions.active_era_id); PruneEras deletes dependent rows explicitly.
CREATE TABLE IF NOT EXISTS election_phases (
	id                       INTEGER PRIMARY KEY AUTOINCREMENT,
	era_id                   INTEGER NOT NULL,
	block_number             INTEGER NOT NULL REFERENCES blocks_ah(block_number) ON DELETE CASCADE,
	round                    INTEGER NOT NULL,
	phase                    TEXT NOT NULL CHECK (phase IN ('Off','Snapshot','Signed','SignedValidation','Unsigned','Done','Export')),
	event_id                 TEXT NOT NULL,
	timestamp                INTEGER NOT NULL,
	validator_candidates     INTEGER,
	nominator_candidates     INTEGER,
	target_validator_count   INTEGER,
	minimum_score            TEXT,
	sorted_scores            TEXT,
	queued_solution_score    TEXT,
	validators_elected       INTEGER,
	expected_duration_blocks INTEGER,
	status                   TEXT
);
CREATE INDEX IF NOT EXISTS idx_election_phases_era ON election_phases(era_id);

CREATE TABLE IF NOT EXISTS election_scores (
	round             INTEGER NOT NULL,
	submitter         TEXT NOT NULL,
	block_number      INTEGER NOT NULL,
	minimal_stake     TEXT NOT NULL DEFAULT '0',
	sum_stake         TEXT NOT NULL DEFAULT '0',
	sum_stake_squared TEXT NOT NULL DEFAULT '0',
	status            TEXT NOT NULL CHECK (status IN ('registered','rewarded','slashed','ejected','discarded','bailed')),
	era_id            INTEGER,
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL,
	PRIMARY KEY (round, submitter)
);

-- warnings.era_id may likewise name an era whose row does not exist yet
-- (a boundary warning fires before the new era row is written), so it
-- carries no FK either; PruneEras deletes dependent rows explicitly.
CREATE TABLE IF NOT EXISTS warnings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	era_id     INTEGER,
	session_id INTEGER,
	block_number INTEGER NOT NULL,
	type       TEXT NOT NULL,
	message    TEXT NOT NULL,
	severity   TEXT NOT NULL CHECK (severity IN ('info','warning','error')),
	timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_warnings_era ON warnings(era_id);
CREATE INDEX IF NOT EXISTS idx_warnings_severity ON warnings(severity);

CREATE TABLE IF NOT EXISTS indexer_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reimport_requests (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	chain         TEXT NOT NULL CHECK (chain IN ('relay_chain','asset_hub')),
	block_number  INTEGER NOT NULL,
	status        TEXT NOT NULL CHECK (status IN ('pending','processing','completed','failed')),
	submitted_at  INTEGER NOT NULL,
	completed_at  INTEGER,
	error         TEXT
);
CREATE INDEX IF NOT EXISTS idx_reimport_status ON reimport_requests(status, submitted_at);
`,
}
