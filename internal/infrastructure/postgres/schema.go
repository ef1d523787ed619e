package postgres

import (
	"context"
	"fmt"
)

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist. Tables referencing users
// and groups must come after them.
const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	is_premium BOOLEAN NOT NULL DEFAULT false,
	is_admin BOOLEAN NOT NULL DEFAULT false,
	is_active BOOLEAN NOT NULL DEFAULT true,
	notifications_enabled BOOLEAN NOT NULL DEFAULT true,
	last_active_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS groups (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT 'other',
	avatar TEXT NOT NULL DEFAULT '',
	currency TEXT NOT NULL DEFAULT 'BDT',
	owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	invite_code TEXT NOT NULL UNIQUE,
	allow_member_invite BOOLEAN NOT NULL DEFAULT true,
	auto_split BOOLEAN NOT NULL DEFAULT false,
	require_approval BOOLEAN NOT NULL DEFAULT false,
	total_expenses DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_transactions INTEGER NOT NULL DEFAULT 0,
	last_activity_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	currency TEXT NOT NULL DEFAULT 'BDT',
	category TEXT NOT NULL DEFAULT 'other',
	note TEXT NOT NULL DEFAULT '',
	date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	group_id UUID REFERENCES groups(id) ON DELETE CASCADE,
	splits JSONB NOT NULL DEFAULT '[]',
	split_type TEXT NOT NULL DEFAULT 'equal',
	paid_by UUID,
	is_settlement BOOLEAN NOT NULL DEFAULT false,
	settled_with UUID,
	tags TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS recurring_transactions (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	type TEXT NOT NULL DEFAULT 'expense',
	subscription_type TEXT NOT NULL DEFAULT 'other',
	category TEXT NOT NULL DEFAULT 'other',
	amount DOUBLE PRECISION NOT NULL,
	currency TEXT NOT NULL DEFAULT 'BDT',
	note TEXT NOT NULL DEFAULT '',
	frequency TEXT NOT NULL,
	next_run_date TIMESTAMPTZ,
	end_date TIMESTAMPTZ,
	last_paid_date TIMESTAMPTZ,
	auto_pay BOOLEAN NOT NULL DEFAULT false,
	last_reminder_sent TIMESTAMPTZ,
	reminder_days JSONB NOT NULL DEFAULT '[]',
	is_active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS feature_flags (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	key TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	enabled BOOLEAN NOT NULL DEFAULT false,
	rollout_percentage INTEGER NOT NULL DEFAULT 100,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS fcm_device_tokens (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	token TEXT NOT NULL UNIQUE,
	device_type TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_used TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS fcm_notification_preferences (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	general_enabled BOOLEAN NOT NULL DEFAULT true,
	groups_enabled BOOLEAN NOT NULL DEFAULT true,
	reminders_enabled BOOLEAN NOT NULL DEFAULT true,
	transactions_enabled BOOLEAN NOT NULL DEFAULT true,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS fcm_notifications (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	category TEXT NOT NULL,
	data JSONB,
	opened_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS scheduled_broadcasts (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'general',
	data JSONB,
	user_ids JSONB NOT NULL DEFAULT '[]',
	segment JSONB,
	send_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	sent BOOLEAN NOT NULL DEFAULT false,
	sent_at TIMESTAMPTZ,
	created_by UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_group_id ON transactions(group_id) WHERE group_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_recurring_user_id ON recurring_transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_recurring_active_due ON recurring_transactions(next_run_date) WHERE is_active = true;
CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_device_tokens(user_id);
CREATE INDEX IF NOT EXISTS idx_fcm_notifications_user_created ON fcm_notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_broadcasts_due ON scheduled_broadcasts(send_at) WHERE sent = false;
`

// EnsureSchema creates all tables and indexes if they do not exist yet.
// Called once on startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
