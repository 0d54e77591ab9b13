package notifications

// Type classifies a record for presentation. It has no effect on store behavior.
type Type string

const (
	TypeAchievement Type = "achievement"
	TypeMilestone   Type = "milestone"
	TypeReminder    Type = "reminder"
	TypeGoal        Type = "goal"
	TypeHealth      Type = "health"
	TypeSystem      Type = "system"
	TypePush        Type = "push"
)

// Valid reports whether t belongs to the closed set of record types.
func (t Type) Valid() bool {
	switch t {
	case TypeAchievement, TypeMilestone, TypeReminder, TypeGoal, TypeHealth, TypeSystem, TypePush:
		return true
	}
	return false
}

// Source records where a notification was created.
type Source string

const (
	SourceApp      Source = "app"
	SourceFirebase Source = "firebase"
)

// Record is a single notification in a user's collection. Only IsRead changes after creation.
type Record struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      Type           `json:"type"`
	IsRead    bool           `json:"isRead"`
	Timestamp int64          `json:"timestamp"`
	Date      string         `json:"date"`
	Time      string         `json:"time"`
	UserID    string         `json:"userId"`
	Source    Source         `json:"source"`
	Data      map[string]any `json:"data,omitempty"`
}

// Input is the caller supplied part of a new record.
type Input struct {
	Title   string         `json:"title" validate:"required,max=256"`
	Message string         `json:"message" validate:"max=4096"`
	Type    Type           `json:"type" validate:"required"`
	Data    map[string]any `json:"data,omitempty"`
}

// Event names delivered to an Observer.
type Event string

const (
	EventCreated Event = "notification.created"
	EventRead    Event = "notification.read"
	EventReadAll Event = "notification.read_all"
	EventDeleted Event = "notification.deleted"
	EventCleared Event = "notification.cleared"
)

// Observer is notified after each successful mutation. Record is the zero value for bulk events.
type Observer func(userID string, event Event, record Record)

func (r Record) clone() Record {
	if r.Data != nil {
		data := make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			data[k] = v
		}
		r.Data = data
	}
	return r
}
