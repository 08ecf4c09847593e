package db

// SQL schema definitions for the database layer.
// A single SQLCipher-encrypted database holds identity data and all notes.

// AppDBSchema contains all the SQL statements for the application database.
const AppDBSchema = `
-- Users table: registered accounts with password credentials
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

-- Sessions table: stores active user sessions
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    expires_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

-- Reset tokens table: single-use password reset tokens (hashes only)
CREATE TABLE IF NOT EXISTS reset_tokens (
    token_hash TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    expires_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reset_tokens_user_id ON reset_tokens(user_id);

-- Notes table: all notes across all users, scoped by owner
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    tag TEXT NOT NULL DEFAULT 'General',
    share INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_owner_created ON notes(owner, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notes_share ON notes(share);

-- Trigger: a note never changes hands after creation
CREATE TRIGGER IF NOT EXISTS notes_owner_immutable
BEFORE UPDATE OF owner ON notes
WHEN old.owner != new.owner
BEGIN
    SELECT RAISE(ABORT, 'notes.owner is immutable');
END;
`
