package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	provider_id TEXT UNIQUE,
	name TEXT,
	email_verified BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS climbs (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	grade_scale TEXT NOT NULL,
	grade TEXT NOT NULL,
	discipline TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	style TEXT[] NOT NULL DEFAULT '{}',
	outcome TEXT NOT NULL CHECK (outcome IN ('Sent', 'Fail')),
	awkwardness SMALLINT NOT NULL DEFAULT 3 CHECK (awkwardness BETWEEN 1 AND 5),
	failure_reasons TEXT[] NOT NULL DEFAULT '{}',
	hold_color TEXT,
	notes TEXT NOT NULL DEFAULT '',
	tag_sources JSONB NOT NULL DEFAULT '{}',
	tags_extracted_at TIMESTAMPTZ,
	redeemed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_climbs_user_created ON climbs (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS recommendations (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content JSONB,
	is_cached BOOLEAN NOT NULL DEFAULT false,
	error_message TEXT,
	model TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_recommendations_user_created ON recommendations (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS usage_records (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	prompt_tokens BIGINT NOT NULL DEFAULT 0,
	completion_tokens BIGINT NOT NULL DEFAULT 0,
	total_tokens BIGINT NOT NULL DEFAULT 0,
	cost_usd NUMERIC(12, 6) NOT NULL DEFAULT 0,
	model TEXT NOT NULL DEFAULT '',
	endpoint TEXT NOT NULL,
	succeeded BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_usage_records_user_created ON usage_records (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS quota_counters (
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	limit_date DATE NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, kind)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS coaching_preferences (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	context_summary TEXT NOT NULL DEFAULT '',
	preferences JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_activity (
	user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	last_api_interaction TIMESTAMPTZ NOT NULL,
	weekly_plan_paused BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS oidc_config (
	id UUID PRIMARY KEY,
	provider TEXT NOT NULL UNIQUE,
	issuer TEXT NOT NULL,
	domain TEXT,
	client_id TEXT NOT NULL,
	client_secret TEXT,
	redirect_uri TEXT NOT NULL,
	jwks_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Operator settings edited by crux-configure, one JSON document per key
CREATE TABLE IF NOT EXISTS app_settings (
	key TEXT PRIMARY KEY,
	value JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
