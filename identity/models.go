package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRecord models the users row. The identity system owns these rows; this
// module only reads them.
type UserRecord struct {
	bun.BaseModel `bun:"table:users"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	UserID      string    `bun:"user_id"`
	Role        string    `bun:"role"`
	BirthDate   string    `bun:"birth_date"`
	Country     string    `bun:"country"`
	DisplayName string    `bun:"display_name"`
	Email       string    `bun:"email"`
	CreatedAt   time.Time `bun:"created_at"`
}

// ChildLinkRecord models the child_links row tying a guardian to a child.
type ChildLinkRecord struct {
	bun.BaseModel `bun:"table:child_links"`

	ID       uuid.UUID `bun:"id,pk,type:uuid"`
	AdultID  string    `bun:"adult_id"`
	ChildID  string    `bun:"child_id"`
	LinkedAt time.Time `bun:"linked_at"`
}
