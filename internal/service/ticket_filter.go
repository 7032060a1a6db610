package service

import (
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketAdminFilter describes the admin listing filters. A nil field means
// the corresponding predicate is not applied.
type TicketAdminFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	SearchTerm *string
}

// ticketPredicate is a single independently testable filter clause. The
// admin listing applies a conjunction of these instead of building dynamic
// SQL.
type ticketPredicate func(*domain.Ticket) bool

func allOf(preds ...ticketPredicate) ticketPredicate {
	return func(t *domain.Ticket) bool {
		for _, pred := range preds {
			if !pred(t) {
				return false
			}
		}
		return true
	}
}

func statusPredicate(status domain.TicketStatus) ticketPredicate {
	return func(t *domain.Ticket) bool {
		return t.Status == status
	}
}

func priorityPredicate(priority domain.TicketPriority) ticketPredicate {
	return func(t *domain.Ticket) bool {
		return t.Priority == priority
	}
}

// searchPredicate matches a case-insensitive substring against the title or
// the owner's full name ("first last").
func searchPredicate(term string) ticketPredicate {
	needle := strings.ToLower(strings.TrimSpace(term))
	return func(t *domain.Ticket) bool {
		if needle == "" {
			return true
		}
		if strings.Contains(strings.ToLower(t.Title), needle) {
			return true
		}
		return t.Owner != nil && strings.Contains(strings.ToLower(t.Owner.FullName()), needle)
	}
}

func buildFilterPredicates(filter TicketAdminFilter) []ticketPredicate {
	var preds []ticketPredicate
	if filter.Status != nil {
		preds = append(preds, statusPredicate(*filter.Status))
	}
	if filter.Priority != nil {
		preds = append(preds, priorityPredicate(*filter.Priority))
	}
	if filter.SearchTerm != nil {
		preds = append(preds, searchPredicate(*filter.SearchTerm))
	}
	return preds
}
