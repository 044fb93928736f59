package visibility

import (
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
)

// EventViewer is who is asking to see an event.
type EventViewer struct {
	IsAdmin bool
}

// CanSeeEvent reports whether viewer may read ev. Private events are admin only.
func CanSeeEvent(ev *models.Event, viewer EventViewer) bool {
	if ev == nil {
		return false
	}
	return ev.IsPublic || viewer.IsAdmin
}

// EnsureEventVisible returns NOT_FOUND for a missing event and FORBIDDEN for
// a private one the viewer may not read.
func EnsureEventVisible(ev *models.Event, viewer EventViewer) error {
	if ev == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	if !CanSeeEvent(ev, viewer) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "event is private")
	}
	return nil
}

// FilterEvents keeps the events viewer may read, preserving order.
func FilterEvents(rows []models.Event, viewer EventViewer) []models.Event {
	if viewer.IsAdmin {
		return rows
	}
	out := rows[:0:0]
	for i := range rows {
		if CanSeeEvent(&rows[i], viewer) {
			out = append(out, rows[i])
		}
	}
	return out
}
