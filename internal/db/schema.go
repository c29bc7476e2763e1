package db

// Conversations store their pair in canonical order so the unique
// constraint covers both (a, b) and (b, a).
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversations (
	id         BIGSERIAL PRIMARY KEY,
	user_low   BIGINT NOT NULL REFERENCES users (id),
	user_high  BIGINT NOT NULL REFERENCES users (id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (user_low < user_high),
	UNIQUE (user_low, user_high)
);

CREATE INDEX IF NOT EXISTS conversations_user_high_idx ON conversations (user_high);

CREATE TABLE IF NOT EXISTS messages (
	id              BIGSERIAL PRIMARY KEY,
	conversation_id BIGINT NOT NULL REFERENCES conversations (id),
	sender_id       BIGINT NOT NULL REFERENCES users (id),
	content         TEXT NOT NULL,
	created_ns      BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation_id, created_ns, id);
`
