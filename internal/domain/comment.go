package domain

import "time"

// Comment is an append-only entry in a ticket's thread. There is no update
// or delete; the log only grows.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time

	// Author is populated by queries that join users.
	Author *User
}
