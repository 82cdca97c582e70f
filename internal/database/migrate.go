package database

import (
	"context"
	"database/sql"
	"fmt"
)

// identitySchema creates the identity tables. super_admin_guard is 1 only
// for the super-admin row and NULL otherwise, so its unique key admits at
// most one super-admin.
var identitySchema = []string{
	`CREATE TABLE IF NOT EXISTS distributers (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(120)  NOT NULL,
		email         VARCHAR(255)  NOT NULL,
		password_hash VARCHAR(255)  NOT NULL,
		access        ENUM('view','full') NOT NULL DEFAULT 'view',
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_distributers_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name              VARCHAR(120) NOT NULL,
		email             VARCHAR(255) NOT NULL,
		password_hash     VARCHAR(255) NOT NULL,
		role              ENUM('doctor','admin','super-admin','planner') NOT NULL DEFAULT 'doctor',
		capabilities      INT UNSIGNED NOT NULL DEFAULT 0,
		distributer_id    BIGINT UNSIGNED NULL,
		is_suspended      TINYINT(1) NOT NULL DEFAULT 0,
		super_admin_guard TINYINT AS (IF(role = 'super-admin', 1, NULL)) STORED,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email),
		UNIQUE KEY super_admin_guard (super_admin_guard),
		KEY idx_users_role (role),
		KEY idx_users_distributer (distributer_id),
		CONSTRAINT fk_users_distributer FOREIGN KEY (distributer_id)
			REFERENCES distributers (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		subject_kind ENUM('user','distributer') NOT NULL,
		subject_id   BIGINT UNSIGNED NOT NULL,
		token_hash   CHAR(64) NOT NULL,
		expires_at   DATETIME NOT NULL,
		revoked_at   DATETIME NULL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY idx_refresh_subject (subject_kind, subject_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing identity tables. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range identitySchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
