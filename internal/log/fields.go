package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldTemplateID = "template_id"
	FieldUserID     = "user_id"
	FieldRule       = "rule"
	FieldHorizon    = "horizon"
	FieldDate       = "date"
	FieldFromDate   = "from_date"
	FieldCandidates = "candidates"
	FieldInserted   = "inserted"
	FieldSkipped    = "skipped"
	FieldUpdated    = "updated"
	FieldDeleted    = "deleted"
	FieldAmount     = "amount_cents"
	FieldDuration   = "duration_ms"
	FieldTraceID    = "trace_id"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentMaterializer = "materializer"
	ComponentService      = "service"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentCLI          = "cli"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpMaterialize = "materialize"
	OpPropagate   = "propagate"
	OpDelete      = "delete"
	OpPublish     = "publish"
	OpSweep       = "sweep"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTemplate adds template identity fields
func (f LogFields) WithTemplate(templateID, userID string) LogFields {
	f[FieldTemplateID] = templateID
	if userID != "" {
		f[FieldUserID] = userID
	}
	return f
}

// With adds an arbitrary field
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
