package store

// Schema v1 - initial database schema
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Canonical deduplicated libraries, one row per normalized key.
-- Created lazily on first declaration, never deleted automatically.
CREATE TABLE IF NOT EXISTS libraries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  key TEXT UNIQUE NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT 'library',
  latest_version TEXT,
  last_checked_at DATETIME,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_libraries_key ON libraries(key);

-- Per-project component declarations, synced from the project manifest.
-- Rows removed from the manifest are pruned so orphaned libraries drop
-- out of active polling.
CREATE TABLE IF NOT EXISTS components (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  project TEXT NOT NULL,
  name TEXT NOT NULL,
  version TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT 'library',
  scope TEXT NOT NULL DEFAULT '',
  library_id INTEGER REFERENCES libraries(id),
  UNIQUE(project, name)
);

CREATE INDEX IF NOT EXISTS idx_components_project ON components(project);
CREATE INDEX IF NOT EXISTS idx_components_library ON components(library_id);

-- Release history, one row per (library, version). Summary/source/date
-- are refreshed on re-detection; rows are never deleted.
CREATE TABLE IF NOT EXISTS releases (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  library_id INTEGER NOT NULL REFERENCES libraries(id),
  version TEXT NOT NULL,
  release_date DATETIME,
  summary TEXT NOT NULL DEFAULT '',
  source_url TEXT NOT NULL DEFAULT '',
  is_security INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(library_id, version)
);

-- Per-project notification watermark: the last version each project was
-- told about for each library.
CREATE TABLE IF NOT EXISTS watermarks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  project TEXT NOT NULL,
  library TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  release_date TEXT NOT NULL DEFAULT '',
  summary TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(project, library)
);

-- Global future-update lifecycle records, one row per (library, version).
-- Never deleted by the engine, only status-transitioned.
CREATE TABLE IF NOT EXISTS future_updates (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  library TEXT NOT NULL,
  version TEXT NOT NULL,
  confidence INTEGER NOT NULL DEFAULT 0,
  previous_confidence INTEGER,
  expected_date DATETIME,
  features TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'detected',
  notification_sent INTEGER NOT NULL DEFAULT 0,
  notification_sent_at DATETIME,
  change_reason TEXT NOT NULL DEFAULT '',
  promoted_release_id INTEGER REFERENCES releases(id),
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(library, version)
);

CREATE INDEX IF NOT EXISTS idx_future_updates_status ON future_updates(status);
`
