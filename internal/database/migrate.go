package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order.  seat_locks holds one row per sold seat; its
// primary key is what keeps two confirmed bookings of the same show from
// sharing a seat.  Cancelling a booking deletes its lock rows.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		name          VARCHAR(100) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'CUSTOMER',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS theatres (
		id   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		city VARCHAR(80)  NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS screens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		theatre_id BIGINT UNSIGNED NOT NULL,
		name       VARCHAR(60) NOT NULL,
		type       VARCHAR(20) NOT NULL DEFAULT '2D',
		capacity   INT UNSIGNED NOT NULL,
		status     VARCHAR(16) NOT NULL DEFAULT 'active',
		CONSTRAINT fk_screen_theatre FOREIGN KEY (theatre_id) REFERENCES theatres (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS movies (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title        VARCHAR(200) NOT NULL,
		genre        VARCHAR(60)  NOT NULL DEFAULT '',
		language     VARCHAR(40)  NOT NULL DEFAULT '',
		duration_min INT UNSIGNED NOT NULL DEFAULT 0,
		rating       DECIMAL(3,1) NOT NULL DEFAULT 0,
		status       VARCHAR(20)  NOT NULL DEFAULT 'now_showing',
		KEY idx_movies_title (title)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS shows (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		movie_id   BIGINT UNSIGNED NOT NULL,
		screen_id  BIGINT UNSIGNED NOT NULL,
		show_date  DATE NOT NULL,
		show_time  TIME NOT NULL,
		price_tier VARCHAR(16) NOT NULL DEFAULT 'standard',
		base_price BIGINT NOT NULL,
		capacity   INT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_show_slot (screen_id, show_date, show_time),
		KEY idx_shows_date (show_date, show_time),
		CONSTRAINT fk_show_movie  FOREIGN KEY (movie_id)  REFERENCES movies (id),
		CONSTRAINT fk_show_screen FOREIGN KEY (screen_id) REFERENCES screens (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reference      CHAR(36) NOT NULL,
		user_id        BIGINT UNSIGNED NOT NULL,
		show_id        BIGINT UNSIGNED NOT NULL,
		payment_method VARCHAR(32) NOT NULL,
		total_amount   BIGINT NOT NULL,
		status         VARCHAR(16) NOT NULL,
		created_at     DATETIME NOT NULL,
		cancelled_at   DATETIME NULL,
		UNIQUE KEY uq_booking_ref (reference),
		KEY idx_bookings_user (user_id, created_at),
		KEY idx_bookings_status_created (status, created_at),
		CONSTRAINT fk_booking_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_booking_show FOREIGN KEY (show_id) REFERENCES shows (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS booking_seats (
		booking_id BIGINT UNSIGNED NOT NULL,
		position   SMALLINT UNSIGNED NOT NULL,
		seat_label VARCHAR(4) NOT NULL,
		tier       VARCHAR(16) NOT NULL,
		price      BIGINT NOT NULL,
		PRIMARY KEY (booking_id, position),
		CONSTRAINT fk_line_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seat_locks (
		show_id    BIGINT UNSIGNED NOT NULL,
		seat_label VARCHAR(4) NOT NULL,
		booking_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (show_id, seat_label),
		KEY idx_locks_booking (booking_id),
		CONSTRAINT fk_lock_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
