package postgres

import "context"

// schemaDDL creates the six tables of spec §3/§6, idempotently. Run
// by the `init_db` CLI subcommand.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	user_id       TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
	id             BIGSERIAL PRIMARY KEY,
	session_id     TEXT NOT NULL UNIQUE,
	user_id        BIGINT REFERENCES users(id) ON DELETE SET NULL,
	session_key    TEXT NOT NULL UNIQUE,
	remote_addr    TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_active_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS nonces (
	session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
	nonce      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, nonce)
);

CREATE TABLE IF NOT EXISTS rooms (
	id         BIGSERIAL PRIMARY KEY,
	room_id    TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL UNIQUE,
	is_private BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS members (
	room_id   BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	is_admin  BOOLEAN NOT NULL DEFAULT false,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (room_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id               BIGSERIAL PRIMARY KEY,
	room_id          BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id          BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content          TEXT NOT NULL,
	is_announcement  BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS messages_room_order_idx ON messages (room_id, created_at, id);
`

// InitSchema creates the schema if it does not already exist.
func InitSchema(ctx context.Context, s *Store) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	return err
}
