package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ticketgate/gate-api/internal/domain"
)

type ScanRequest struct {
	TicketCode   string `json:"ticket_code"`
	Direction    string `json:"direction"`
	EntranceName string `json:"entrance_name"`
	OperatorName string `json:"operator_name"`
}

// Validate only checks the shape of the body. Code and name formats are
// checked by the admission service so that they produce an outcome.
func (req *ScanRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.TicketCode, validation.Required, validation.Length(0, 200)),
		validation.Field(&req.Direction, validation.Length(0, 16)),
		validation.Field(&req.EntranceName, validation.Required, validation.Length(0, 200)),
		validation.Field(&req.OperatorName, validation.Length(0, 200)),
	)
}

func (req *ScanRequest) ToDomain(eventID uint, operator string) domain.ScanRequest {
	if req.OperatorName != "" {
		operator = req.OperatorName
	}
	return domain.ScanRequest{
		EventID:      eventID,
		TicketCode:   req.TicketCode,
		Direction:    domain.Direction(req.Direction),
		EntranceName: req.EntranceName,
		OperatorName: operator,
	}
}

type BulkScanRequest struct {
	Items []BulkScanItem `json:"items"`
}

type BulkScanItem struct {
	TicketCode   string `json:"ticket_code"`
	Direction    string `json:"direction"`
	EntranceName string `json:"entrance_name"`
	OperatorName string `json:"operator_name"`
}

// Validate rejects an empty batch. Items are validated one by one by the
// admission service.
func (req *BulkScanRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Items, validation.Required),
	)
}

func (req *BulkScanRequest) ToDomain(operator string) []domain.BulkItem {
	items := make([]domain.BulkItem, 0, len(req.Items))
	for _, item := range req.Items {
		op := operator
		if item.OperatorName != "" {
			op = item.OperatorName
		}
		items = append(items, domain.BulkItem{
			TicketCode:   item.TicketCode,
			Direction:    domain.Direction(item.Direction),
			EntranceName: item.EntranceName,
			OperatorName: op,
		})
	}
	return items
}
