package log

// Field names shared across structured log records.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldExpenseID  = "expense_id"
	FieldProvider   = "provider"
	FieldEmail      = "email"
	FieldAmount     = "amount_paise"
)

// Component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStore   = "storage"
	ComponentGateway = "gateway"
	ComponentAuth    = "auth"
	ComponentAMQP    = "amqp"
	ComponentExport  = "export"
)
