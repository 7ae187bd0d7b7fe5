package database

// sqliteSchema uses partial unique indexes for the conditional
// constraints (single admin per board, non-empty display names unique
// per board, unique active email).
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_slug     TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		is_active     INTEGER NOT NULL DEFAULT 1,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS unique_active_email
		ON users(email) WHERE is_active = 1`,

	`CREATE TABLE IF NOT EXISTS boards (
		board_slug          TEXT PRIMARY KEY,
		board_title         TEXT NOT NULL,
		messages_allowed    INTEGER NOT NULL DEFAULT 0,
		new_members_allowed INTEGER NOT NULL DEFAULT 0,
		created_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS board_memberships (
		membership_id INTEGER PRIMARY KEY AUTOINCREMENT,
		board_slug    TEXT NOT NULL REFERENCES boards(board_slug) ON DELETE CASCADE,
		user_slug     TEXT NOT NULL REFERENCES users(user_slug),
		role          INTEGER NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (board_slug, user_slug)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS unique_admin
		ON board_memberships(board_slug) WHERE role = 1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS unique_display_name
		ON board_memberships(board_slug, display_name) WHERE display_name != ''`,
	`CREATE INDEX IF NOT EXISTS idx_membership_board_user
		ON board_memberships(board_slug, user_slug)`,

	`CREATE TABLE IF NOT EXISTS columns (
		column_id    INTEGER PRIMARY KEY AUTOINCREMENT,
		board_slug   TEXT NOT NULL REFERENCES boards(board_slug) ON DELETE CASCADE,
		column_index INTEGER NOT NULL,
		column_title TEXT NOT NULL,
		wip_limit_on INTEGER NOT NULL DEFAULT 1,
		wip_limit    INTEGER NOT NULL DEFAULT 5,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_columns_board ON columns(board_slug, column_index)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		task_id     INTEGER PRIMARY KEY AUTOINCREMENT,
		board_slug  TEXT NOT NULL REFERENCES boards(board_slug) ON DELETE CASCADE,
		column_id   INTEGER NOT NULL REFERENCES columns(column_id) ON DELETE CASCADE,
		task_index  INTEGER NOT NULL,
		text        TEXT NOT NULL,
		is_archived INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_column ON tasks(column_id, task_index)`,

	`CREATE TABLE IF NOT EXISTS board_messages (
		msg_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		board_slug  TEXT NOT NULL REFERENCES boards(board_slug) ON DELETE CASCADE,
		sender_slug TEXT NOT NULL REFERENCES users(user_slug),
		message     TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS invitations (
		invitation_id INTEGER PRIMARY KEY AUTOINCREMENT,
		board_slug    TEXT NOT NULL REFERENCES boards(board_slug) ON DELETE CASCADE,
		email         TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (board_slug, email)
	)`,

	`CREATE TABLE IF NOT EXISTS invite_tokens (
		digest        TEXT PRIMARY KEY,
		invitation_id INTEGER NOT NULL REFERENCES invitations(invitation_id) ON DELETE CASCADE,
		token_key     TEXT NOT NULL,
		expiry        TIMESTAMP NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invite_tokens_key ON invite_tokens(token_key)`,

	`CREATE TABLE IF NOT EXISTS activity_logs (
		log_id     INTEGER PRIMARY KEY AUTOINCREMENT,
		board_slug TEXT NOT NULL REFERENCES boards(board_slug) ON DELETE CASCADE,
		task_id    INTEGER REFERENCES tasks(task_id) ON DELETE SET NULL,
		command    TEXT,
		msg        TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// mysqlSchema expresses the conditional constraints with functional key
// parts (MySQL 8): NULL key parts never collide, so rows outside the
// condition are exempt from uniqueness.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_slug     VARCHAR(10) PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY unique_active_email (email, (CASE WHEN is_active THEN 1 ELSE NULL END))
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS boards (
		board_slug          VARCHAR(10) PRIMARY KEY,
		board_title         VARCHAR(255) NOT NULL,
		messages_allowed    BOOLEAN NOT NULL DEFAULT FALSE,
		new_members_allowed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS board_memberships (
		membership_id BIGINT AUTO_INCREMENT PRIMARY KEY,
		board_slug    VARCHAR(10) NOT NULL,
		user_slug     VARCHAR(10) NOT NULL,
		role          TINYINT NOT NULL,
		display_name  VARCHAR(255) NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY unique_member (board_slug, user_slug),
		UNIQUE KEY unique_admin (board_slug, (CASE WHEN role = 1 THEN 1 ELSE NULL END)),
		UNIQUE KEY unique_display_name (board_slug, (NULLIF(display_name, ''))),
		KEY idx_membership_board_user (board_slug, user_slug),
		CONSTRAINT fk_membership_board FOREIGN KEY (board_slug)
			REFERENCES boards(board_slug) ON DELETE CASCADE,
		CONSTRAINT fk_membership_user FOREIGN KEY (user_slug)
			REFERENCES users(user_slug)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS columns (
		column_id    BIGINT AUTO_INCREMENT PRIMARY KEY,
		board_slug   VARCHAR(10) NOT NULL,
		column_index SMALLINT UNSIGNED NOT NULL,
		column_title VARCHAR(255) NOT NULL,
		wip_limit_on BOOLEAN NOT NULL DEFAULT TRUE,
		wip_limit    SMALLINT UNSIGNED NOT NULL DEFAULT 5,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_columns_board (board_slug, column_index),
		CONSTRAINT fk_column_board FOREIGN KEY (board_slug)
			REFERENCES boards(board_slug) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS tasks (
		task_id     BIGINT AUTO_INCREMENT PRIMARY KEY,
		board_slug  VARCHAR(10) NOT NULL,
		column_id   BIGINT NOT NULL,
		task_index  SMALLINT UNSIGNED NOT NULL,
		text        VARCHAR(255) NOT NULL,
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_tasks_column (column_id, task_index),
		CONSTRAINT fk_task_board FOREIGN KEY (board_slug)
			REFERENCES boards(board_slug) ON DELETE CASCADE,
		CONSTRAINT fk_task_column FOREIGN KEY (column_id)
			REFERENCES columns(column_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS board_messages (
		msg_id      BIGINT AUTO_INCREMENT PRIMARY KEY,
		board_slug  VARCHAR(10) NOT NULL,
		sender_slug VARCHAR(10) NOT NULL,
		message     VARCHAR(255) NOT NULL,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_message_board FOREIGN KEY (board_slug)
			REFERENCES boards(board_slug) ON DELETE CASCADE,
		CONSTRAINT fk_message_sender FOREIGN KEY (sender_slug)
			REFERENCES users(user_slug)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS invitations (
		invitation_id BIGINT AUTO_INCREMENT PRIMARY KEY,
		board_slug    VARCHAR(10) NOT NULL,
		email         VARCHAR(255) NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY unique_invite (board_slug, email),
		CONSTRAINT fk_invitation_board FOREIGN KEY (board_slug)
			REFERENCES boards(board_slug) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS invite_tokens (
		digest        VARCHAR(128) PRIMARY KEY,
		invitation_id BIGINT NOT NULL,
		token_key     VARCHAR(15) NOT NULL,
		expiry        TIMESTAMP NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_invite_tokens_key (token_key),
		CONSTRAINT fk_token_invitation FOREIGN KEY (invitation_id)
			REFERENCES invitations(invitation_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS activity_logs (
		log_id     BIGINT AUTO_INCREMENT PRIMARY KEY,
		board_slug VARCHAR(10) NOT NULL,
		task_id    BIGINT NULL,
		command    VARCHAR(255),
		msg        VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_log_board FOREIGN KEY (board_slug)
			REFERENCES boards(board_slug) ON DELETE CASCADE,
		CONSTRAINT fk_log_task FOREIGN KEY (task_id)
			REFERENCES tasks(task_id) ON DELETE SET NULL
	) ENGINE=InnoDB`,
}
