package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents a platform account. Authentication and session issuance
// live in a separate service; this slice only needs identity and email
// resolution for transfer addressing.
type User struct {
	ID          uuid.UUID      `db:"id"`
	Email       string         `db:"email"`
	DisplayName sql.NullString `db:"display_name"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}
