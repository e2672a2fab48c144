package domain

type OutcomeStatus string

const (
	StatusSuccess         OutcomeStatus = "SUCCESS"
	StatusCheckedOut      OutcomeStatus = "CHECKED_OUT"
	StatusInvalid         OutcomeStatus = "INVALID"
	StatusPaymentInvalid  OutcomeStatus = "PAYMENT_INVALID"
	StatusDuplicate       OutcomeStatus = "DUPLICATE"
	StatusLimitExceeded   OutcomeStatus = "LIMIT_EXCEEDED"
	StatusTicketInUse     OutcomeStatus = "TICKET_IN_USE"
	StatusNotCheckedIn    OutcomeStatus = "NOT_CHECKED_IN"
	StatusArchivedEvent   OutcomeStatus = "ARCHIVED_EVENT"
	StatusScansDisabled   OutcomeStatus = "SCANS_DISABLED"
	StatusValidationError OutcomeStatus = "VALIDATION_ERROR"
	StatusError           OutcomeStatus = "ERROR"
)

// Outcome is the typed result of an admission call. Callers branch on
// Status; Message is for display only.
type Outcome struct {
	Status   OutcomeStatus `json:"status"`
	Message  string        `json:"message"`
	Attendee *Attendee     `json:"attendee,omitempty"`
}

func (o Outcome) Admitted() bool {
	return o.Status == StatusSuccess || o.Status == StatusCheckedOut
}

type ScanRequest struct {
	EventID      uint      `json:"event_id"`
	TicketCode   string    `json:"ticket_code"`
	Direction    Direction `json:"direction"`
	EntranceName string    `json:"entrance_name"`
	OperatorName string    `json:"operator_name"`
}

type BulkItem struct {
	TicketCode   string    `json:"ticket_code"`
	Direction    Direction `json:"direction,omitempty"`
	EntranceName string    `json:"entrance_name"`
	OperatorName string    `json:"operator_name"`
}

type ItemResult struct {
	Index      int     `json:"index"`
	TicketCode string  `json:"ticket_code"`
	Outcome    Outcome `json:"outcome"`
}
