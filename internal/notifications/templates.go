package notifications

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/angelmondragon/eventhub-backend/internal/users"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/email"
)

const (
	defaultLocation      = "Local a confirmar"
	defaultEventDuration = 2 * time.Hour
	calendarBaseURL      = "https://calendar.google.com/calendar/render"
	calendarTimeLayout   = "20060102T150405Z"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
)

var (
	weekdaysPT = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}
	monthsPT   = [...]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"}
)

// Announcement is the part of an event that goes into the email. It is
// captured when the event is published so later edits don't leak into
// queued mail.
type Announcement struct {
	EventID     string
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
}

func AnnouncementFromEvent(e *models.Event) Announcement {
	a := Announcement{
		EventID:  e.ID.String(),
		Title:    e.Title,
		StartsAt: e.StartsAt.UTC(),
	}
	if e.Description != nil {
		a.Description = strings.TrimSpace(*e.Description)
	}
	if e.Location != nil {
		a.Location = strings.TrimSpace(*e.Location)
	}
	if e.EndsAt != nil {
		end := e.EndsAt.UTC()
		a.EndsAt = &end
	}
	return a
}

// CalendarURL builds a Google Calendar "add event" link.
func (a Announcement) CalendarURL() string {
	end := a.StartsAt.Add(defaultEventDuration)
	if a.EndsAt != nil {
		end = *a.EndsAt
	}
	details := a.Description
	if details == "" {
		details = a.Title
	}
	return calendarBaseURL +
		"?action=TEMPLATE" +
		"&text=" + encodeComponent(a.Title) +
		"&dates=" + a.StartsAt.UTC().Format(calendarTimeLayout) + "/" + end.UTC().Format(calendarTimeLayout) +
		"&details=" + encodeComponent(details) +
		"&location=" + encodeComponent(a.Location)
}

func (a Announcement) Subject() string {
	return "Novo Evento: " + a.Title
}

type templateData struct {
	Brand       string
	Username    string
	Title       string
	Location    string
	Date        string
	Description string
	CalendarURL string
}

// Renderer composes event announcement emails.
type Renderer struct {
	brand string
	loc   *time.Location
}

func NewRenderer(brand string, loc *time.Location) *Renderer {
	if strings.TrimSpace(brand) == "" {
		brand = "EventHub"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{brand: brand, loc: loc}
}

func (r *Renderer) EventPublished(to users.Recipient, a Announcement) (*email.Message, error) {
	location := a.Location
	if location == "" {
		location = defaultLocation
	}
	data := templateData{
		Brand:       r.brand,
		Username:    to.Username,
		Title:       a.Title,
		Location:    location,
		Date:        formatDatePT(a.StartsAt.In(r.loc)),
		Description: a.Description,
		CalendarURL: a.CalendarURL(),
	}

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, "event_published.txt.tmpl", data); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, "event_published.html.tmpl", data); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	return &email.Message{
		To:       []string{to.Email},
		Subject:  a.Subject(),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

// formatDatePT renders e.g. "sábado, 14 de novembro de 2026 às 21:00".
func formatDatePT(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d às %02d:%02d",
		weekdaysPT[t.Weekday()], t.Day(), monthsPT[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// encodeComponent escapes like a browser's encodeURIComponent: spaces become %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
