package models

const (
	MessageTypeProgress   = "progress"
	MessageTypeSuccess    = "success"
	MessageTypeWarning    = "warning"
	MessageTypeError      = "error"
	MessageTypeInfo       = "info"
	MessageTypeCompletion = "completion"
	MessageTypeMetrics    = "metrics"
)

const (
	RegionProgress = "progress"
	RegionResult   = "result"
	RegionStatus   = "status"
)

const (
	SessionStatusCreated    = "CREATED"
	SessionStatusProcessing = "PROCESSING"
	SessionStatusCompleted  = "COMPLETED"
	SessionStatusFailed     = "FAILED"
)
