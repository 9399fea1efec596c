package recorder

// CheckEvent records one polled price observation.
type CheckEvent struct {
	Ticker        string
	ISIN          string
	Price         float64
	PreviousPrice float64
	ChangePercent float64
	Appended      bool
}

// NotificationEvent records one delivered (or attempted) notification.
type NotificationEvent struct {
	Ticker        string
	ISIN          string
	Price         float64
	ChangePercent float64
	WithChart     bool
	Delivered     bool
}

// Recorder persists monitoring events for later analysis.
type Recorder interface {
	RecordCheck(evt *CheckEvent) error
	RecordNotification(evt *NotificationEvent) error
	Close() error
}
