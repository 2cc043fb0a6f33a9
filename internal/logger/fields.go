package logger

// Standard field names for structured logging across qx.
const (
	FieldComponent = "component"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldReason    = "reason"
	FieldCount     = "count"
	FieldFile      = "file"
	FieldPolicy    = "policy"
)
