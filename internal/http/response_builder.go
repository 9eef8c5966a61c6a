package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
)

// HTMXResponseBuilder assembles one response: status, extra headers, the
// HX-Trigger events the page listens for and a single body. Body setters
// that can fail record the error; Write then sends nothing and returns it.
type HTMXResponseBuilder struct {
	status int
	header http.Header
	events map[string]any
	body   []byte
	err    error
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		header: make(http.Header),
		events: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// Trigger queues an htmx event; detail becomes event.detail in the browser.
func (b *HTMXResponseBuilder) Trigger(name string, detail any) *HTMXResponseBuilder {
	b.events[name] = detail
	return b
}

// TriggerLedgerChanged tells the page the ledger now holds count records;
// the pie chart redraws on it.
func (b *HTMXResponseBuilder) TriggerLedgerChanged(count int) *HTMXResponseBuilder {
	return b.Trigger("ledger:changed", map[string]int{"count": count})
}

func (b *HTMXResponseBuilder) TriggerBudgetChanged(budget string) *HTMXResponseBuilder {
	return b.Trigger("budget:changed", map[string]string{"budget": budget})
}

// TriggerFormReset clears the add form after a successful submission.
func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger("form:reset", struct{}{})
}

// NotificationType selects the toast style in app.js.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// notificationDuration is how long each toast stays up, in milliseconds.
var notificationDuration = map[NotificationType]int{
	NotificationSuccess: 3000,
	NotificationInfo:    3000,
	NotificationWarning: 5000,
	NotificationError:   5000,
}

type notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int              `json:"duration"`
}

// TriggerNotification shows a toast. Only one toast is sent per response;
// a later call replaces an earlier one.
func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", notification{Type: kind, Message: message, Duration: durationMs})
}

func (b *HTMXResponseBuilder) Notify(kind NotificationType, message string) *HTMXResponseBuilder {
	d, ok := notificationDuration[kind]
	if !ok {
		d = 3000
	}
	return b.TriggerNotification(kind, message, d)
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.Notify(NotificationSuccess, message)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.Notify(NotificationError, message)
}

// HTML sets an HTML body.
func (b *HTMXResponseBuilder) HTML(body []byte) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = body
	return b
}

// Template renders the named template into the body.
func (b *HTMXResponseBuilder) Template(t *template.Template, name string, data any) *HTMXResponseBuilder {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		b.err = fmt.Errorf("render %s: %w", name, err)
		return b
	}
	return b.HTML(buf.Bytes())
}

// JSON encodes v as the body. API responses are never cached.
func (b *HTMXResponseBuilder) JSON(v any) *HTMXResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("encode json: %w", err)
		return b
	}
	b.header.Set("Content-Type", "application/json")
	b.header.Set("Cache-Control", "no-store")
	b.body = append(data, '\n')
	return b
}

// Attachment sends data as a download named filename.
func (b *HTMXResponseBuilder) Attachment(filename, contentType string, data []byte) *HTMXResponseBuilder {
	b.header.Set("Content-Type", contentType)
	b.header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	b.body = data
	return b
}

// Err reports the first failure recorded by a body setter.
func (b *HTMXResponseBuilder) Err() error { return b.err }

// Write sends the response. When a body setter failed nothing is written
// and that error is returned, leaving the caller free to answer instead.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) error {
	if b.err != nil {
		return b.err
	}
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	if len(b.events) > 0 {
		if events, err := json.Marshal(b.events); err == nil {
			h.Set("HX-Trigger", string(events))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, err := w.Write(b.body)
		return err
	}
	return nil
}

// ErrorResponse is an escaped alert fragment with the given status.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		HTML([]byte(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`))
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func MethodNotAllowedError(allowed string) *HTMXResponseBuilder {
	return NewHTMXResponse().Status(http.StatusMethodNotAllowed).Header("Allow", allowed)
}
