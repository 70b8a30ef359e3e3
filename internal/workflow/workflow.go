// Package workflow holds the status transition tables for reviewable records.
package workflow

import (
	"errors"
	"fmt"
	"sort"

	"realtyhub/backend/internal/models"
)

var (
	ErrUnknownKind       = errors.New("unknown record kind")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrIllegalTransition = errors.New("status transition not allowed")
)

// TransitionError describes a rejected move between two valid statuses.
type TransitionError struct {
	Kind models.RecordKind
	From models.Status
	To   models.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Kind, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

var statuses = map[models.RecordKind][]models.Status{
	models.KindApplication: {
		models.ApplicationPending,
		models.ApplicationApproved,
		models.ApplicationRejected,
		models.ApplicationMoreInfo,
	},
	models.KindLead: {
		models.LeadNew,
		models.LeadAssigned,
		models.LeadContacted,
		models.LeadQualified,
		models.LeadConverted,
		models.LeadLost,
	},
	models.KindProperty: {
		models.PropertyPending,
		models.PropertyApproved,
		models.PropertyRejected,
		models.PropertySold,
		models.PropertyArchived,
	},
}

// Statuses returns the status enum for kind in display order.
func Statuses(kind models.RecordKind) []models.Status {
	return append([]models.Status(nil), statuses[kind]...)
}

// InitialStatus is the status new records of kind are created with.
func InitialStatus(kind models.RecordKind) models.Status {
	if s := statuses[kind]; len(s) > 0 {
		return s[0]
	}
	return ""
}

// IsValidStatus reports whether s belongs to kind's enum.
func IsValidStatus(kind models.RecordKind, s models.Status) bool {
	for _, known := range statuses[kind] {
		if known == s {
			return true
		}
	}
	return false
}

type edges map[models.Status]map[models.Status]bool

// Table decides which status changes are allowed. The zero value rejects every change.
type Table struct {
	allowed    map[models.RecordKind]edges
	permissive bool
}

// Default returns the enforced table. Rejected applications, lost leads and
// archived properties can be re-opened; converted leads are terminal.
func Default() *Table {
	t := &Table{allowed: make(map[models.RecordKind]edges)}
	t.set(models.KindApplication, map[models.Status][]models.Status{
		models.ApplicationPending:  {models.ApplicationApproved, models.ApplicationRejected, models.ApplicationMoreInfo},
		models.ApplicationMoreInfo: {models.ApplicationPending, models.ApplicationApproved, models.ApplicationRejected},
		models.ApplicationApproved: {models.ApplicationRejected},
		models.ApplicationRejected: {models.ApplicationPending},
	})
	t.set(models.KindLead, map[models.Status][]models.Status{
		models.LeadNew:       {models.LeadAssigned, models.LeadContacted, models.LeadLost},
		models.LeadAssigned:  {models.LeadNew, models.LeadContacted, models.LeadQualified, models.LeadLost},
		models.LeadContacted: {models.LeadAssigned, models.LeadQualified, models.LeadLost},
		models.LeadQualified: {models.LeadContacted, models.LeadConverted, models.LeadLost},
		models.LeadConverted: {},
		models.LeadLost:      {models.LeadNew},
	})
	t.set(models.KindProperty, map[models.Status][]models.Status{
		models.PropertyPending:  {models.PropertyApproved, models.PropertyRejected},
		models.PropertyApproved: {models.PropertySold, models.PropertyArchived, models.PropertyRejected},
		models.PropertyRejected: {models.PropertyPending},
		models.PropertySold:     {models.PropertyArchived},
		models.PropertyArchived: {models.PropertyPending},
	})
	return t
}

// Permissive returns a table where any status of a kind is reachable from any other.
func Permissive() *Table {
	t := &Table{allowed: make(map[models.RecordKind]edges), permissive: true}
	for kind, all := range statuses {
		m := make(map[models.Status][]models.Status, len(all))
		for _, from := range all {
			m[from] = all
		}
		t.set(kind, m)
	}
	return t
}

func (t *Table) set(kind models.RecordKind, m map[models.Status][]models.Status) {
	e := make(edges, len(m))
	for from, tos := range m {
		e[from] = make(map[models.Status]bool, len(tos))
		for _, to := range tos {
			if to != from {
				e[from][to] = true
			}
		}
	}
	t.allowed[kind] = e
}

// IsPermissive reports whether the table allows every move.
func (t *Table) IsPermissive() bool { return t.permissive }

// Validate checks a move of a kind record from one status to another.
// Rewriting the current status is always allowed so notes can be updated.
func (t *Table) Validate(kind models.RecordKind, from, to models.Status) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if !IsValidStatus(kind, to) {
		return fmt.Errorf("%w: %q is not a %s status", ErrInvalidStatus, to, kind)
	}
	if from == to {
		return nil
	}
	if !t.allowed[kind][from][to] {
		return &TransitionError{Kind: kind, From: from, To: to}
	}
	return nil
}

// CanMove is Validate without the error detail.
func (t *Table) CanMove(kind models.RecordKind, from, to models.Status) bool {
	return t.Validate(kind, from, to) == nil
}

// Next lists the statuses reachable from from, in enum order.
func (t *Table) Next(kind models.RecordKind, from models.Status) []models.Status {
	var out []models.Status
	for _, s := range statuses[kind] {
		if s != from && t.allowed[kind][from][s] {
			out = append(out, s)
		}
	}
	return out
}

// Describe returns the table as kind -> from -> allowed targets, for clients
// that render status pickers.
func (t *Table) Describe() map[models.RecordKind]map[models.Status][]models.Status {
	out := make(map[models.RecordKind]map[models.Status][]models.Status, len(statuses))
	kinds := make([]string, 0, len(statuses))
	for k := range statuses {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		kind := models.RecordKind(k)
		m := make(map[models.Status][]models.Status)
		for _, from := range statuses[kind] {
			next := t.Next(kind, from)
			if next == nil {
				next = []models.Status{}
			}
			m[from] = next
		}
		out[kind] = m
	}
	return out
}
