package log

import (
	"sort"

	"kharcha/internal/core"
)

// Common field names for structured logging
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
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldEntity        = "entity"
	FieldID            = "id"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldTxType        = "type"
	FieldScope         = "scope"
	FieldDate          = "date"
	FieldEMIName       = "emi_name"
	FieldDueDate       = "due_date"
	FieldEMIStatus     = "emi_status"
	FieldActiveFilters = "active_filters"
	FieldCount         = "count"
	FieldReason        = "reason"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentEMI       = "emi"
	ComponentCategory  = "category"
	ComponentBudget    = "budget"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentReminder  = "reminder"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpQuote    = "quote"
	OpPayment  = "payment"
	OpScan     = "scan"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors add nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithTransaction(t core.Transaction) LogFields {
	f[FieldEntity] = "transaction"
	f[FieldID] = t.ID
	f[FieldAmount] = t.Amount.String()
	f[FieldCategory] = t.Category
	f[FieldTxType] = string(t.Type)
	f[FieldScope] = string(t.Scope)
	f[FieldDate] = t.Date.String()
	return f
}

func (f LogFields) WithEMI(e core.EMI) LogFields {
	f[FieldEntity] = "emi"
	f[FieldID] = e.ID
	f[FieldEMIName] = e.Name
	f[FieldAmount] = e.MonthlyAmount.String()
	f[FieldDueDate] = e.NextDueDate.String()
	f[FieldEMIStatus] = string(e.Status)
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to slog arguments, ordered by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
