package route

// Status is the lifecycle state of a consumer route.
type Status string

const (
	StatusStarted   Status = "Started"
	StatusStopped   Status = "Stopped"
	StatusSuspended Status = "Suspended"
	StatusUnknown   Status = "Unknown"
	StatusNotFound  Status = "NotFound"
)
