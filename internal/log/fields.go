package log

import "net/http"

// Field names shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldSessionID     = "session_id"
	FieldExpenseIndex  = "expense_index"
	FieldExpenseDesc   = "expense_description"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldLedgerSize    = "ledger_size"
	FieldLine          = "line"
	FieldFile          = "file"
	FieldBackend       = "backend"
	FieldEventAction   = "event_action"
	FieldSpreadsheetID = "spreadsheet_id"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentDashboard = "dashboard"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentSession   = "session"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operation names.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpRender = "render"
)

// LogFields accumulates key/value pairs in insertion order. A key set
// twice keeps its first position and its last value.
type LogFields struct {
	keys   []string
	values map[string]any
}

func NewFields() LogFields {
	return LogFields{values: make(map[string]any)}
}

// Set adds or replaces one field.
func (f LogFields) Set(key string, value any) LogFields {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, seen := f.values[key]; !seen {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	return f
}

func (f LogFields) WithRequestID(id string) LogFields { return f.Set(FieldRequestID, id) }
func (f LogFields) WithClientIP(ip string) LogFields  { return f.Set(FieldClientIP, ip) }
func (f LogFields) WithOperation(op string) LogFields { return f.Set(FieldOperation, op) }
func (f LogFields) WithSessionID(id string) LogFields { return f.Set(FieldSessionID, id) }

// WithError is a no-op for a nil error.
func (f LogFields) WithError(err error) LogFields {
	if err == nil {
		return f
	}
	return f.Set(FieldError, err.Error())
}

// WithExpense records the touched row. index < 0 omits the index and empty
// strings are skipped, so deletes log only what they know.
func (f LogFields) WithExpense(index int, desc, amount, category string) LogFields {
	if index >= 0 {
		f = f.Set(FieldExpenseIndex, index)
	}
	for _, kv := range [][2]string{{FieldExpenseDesc, desc}, {FieldAmount, amount}, {FieldCategory, category}} {
		if kv[1] != "" {
			f = f.Set(kv[0], kv[1])
		}
	}
	return f
}

// WithHTTPRequest skips the optional query, user agent and referer when
// they are empty.
func (f LogFields) WithHTTPRequest(r *http.Request) LogFields {
	f = f.Set(FieldMethod, r.Method).Set(FieldPath, r.URL.Path)
	for _, kv := range [][2]string{{FieldQuery, r.URL.RawQuery}, {FieldUserAgent, r.UserAgent()}, {FieldReferer, r.Referer()}} {
		if kv[1] != "" {
			f = f.Set(kv[0], kv[1])
		}
	}
	return f
}

func (f LogFields) WithHTTPResponse(status int, durationMs int64) LogFields {
	return f.Set(FieldStatusCode, status).Set(FieldDuration, durationMs).Set(FieldSuccess, status < 400)
}

// Args flattens the fields for slog.
func (f LogFields) Args() []any {
	args := make([]any, 0, len(f.keys)*2)
	for _, k := range f.keys {
		args = append(args, k, f.values[k])
	}
	return args
}
