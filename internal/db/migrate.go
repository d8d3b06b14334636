package db

import (
	"context"
	"database/sql"
	"fmt"
)

// MySQL ドライバは既定で複数ステートメントを受け付けないため1文ずつ実行する
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    user_id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    username VARCHAR(50) NOT NULL,
    email VARCHAR(255) NOT NULL,
    phone VARCHAR(30) NULL,
    password VARCHAR(255) NOT NULL,
    account_status ENUM('active', 'suspended', 'banned') NOT NULL DEFAULT 'active',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY users_username_unique (username),
    UNIQUE KEY users_email_unique (email)
)`,
	`CREATE TABLE IF NOT EXISTS admins (
    admin_id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    username VARCHAR(50) NOT NULL,
    password VARCHAR(255) NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY admins_username_unique (username)
)`,
	`CREATE TABLE IF NOT EXISTS newsletter_subscriptions (
    id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    email VARCHAR(255) NOT NULL,
    user_id INT UNSIGNED NULL,
    name VARCHAR(100) NULL,
    source VARCHAR(50) NOT NULL DEFAULT 'footer_form',
    status ENUM('active', 'unsubscribed') NOT NULL DEFAULT 'active',
    subscribed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY newsletter_email_unique (email),
    KEY newsletter_user_id_idx (user_id)
)`,
	`CREATE TABLE IF NOT EXISTS contact_messages (
    id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    email VARCHAR(255) NOT NULL,
    subject VARCHAR(150) NOT NULL,
    message TEXT NOT NULL,
    user_id INT UNSIGNED NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS site_visits (
    id INT UNSIGNED NOT NULL PRIMARY KEY,
    visit_count BIGINT UNSIGNED NOT NULL DEFAULT 0
)`,
	`INSERT IGNORE INTO site_visits (id, visit_count) VALUES (1, 0)`,
}

// Migrate はテーブルが無ければ作成します。何度実行しても安全です。
func Migrate(ctx context.Context, conn *sql.DB) error {
	for i, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
