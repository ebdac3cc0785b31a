package intent

// Action classifies what a spoken command asks the assistant to do.
type Action string

const (
	ActionCreateEvent Action = "create_event"
	ActionAddExpense  Action = "add_expense"
	ActionNavigate    Action = "navigate"
	ActionQuery       Action = "query"
	ActionUnknown     Action = "unknown"
)

// Intent is the structured command derived from a transcription. Slot fields
// are empty when the text did not provide them.
type Intent struct {
	Action      Action  `json:"action"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Location    string  `json:"location,omitempty"`
	Date        string  `json:"date,omitempty"`
	Time        string  `json:"time,omitempty"`
	Amount      string  `json:"amount,omitempty"`
	Category    string  `json:"category,omitempty"`
	IsAllDay    bool    `json:"is_all_day,omitempty"`
	Confidence  float64 `json:"confidence"`
}
