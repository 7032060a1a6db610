package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CommentRepository manages the append-only per-ticket comment log.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
	// FindRecentMatching returns the newest comment on the ticket with the
	// same body and author, or pgx.ErrNoRows when none exists.
	FindRecentMatching(ctx context.Context, ticketID, body, authorID string) (*domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_user_id, body)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt)
}

const commentSelect = `
        SELECT c.id, c.ticket_id, c.author_user_id, c.body, c.created_at,
               u.email, u.first_name, u.last_name, u.role
        FROM ticket_comments c
        JOIN users u ON u.id = c.author_user_id`

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.ticket_id=$1 ORDER BY c.created_at DESC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) FindRecentMatching(ctx context.Context, ticketID, body, authorID string) (*domain.Comment, error) {
	query := commentSelect + `
        WHERE c.ticket_id=$1 AND c.body=$2 AND c.author_user_id=$3
        ORDER BY c.created_at DESC LIMIT 1`
	return scanComment(r.pool.QueryRow(ctx, query, ticketID, body, authorID))
}

func scanComment(row rowScanner) (*domain.Comment, error) {
	var (
		comment domain.Comment
		author  domain.User
	)
	if err := row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.AuthorID,
		&comment.Body,
		&comment.CreatedAt,
		&author.Email,
		&author.FirstName,
		&author.LastName,
		&author.Role,
	); err != nil {
		return nil, err
	}
	author.ID = comment.AuthorID
	comment.Author = &author
	return &comment, nil
}
