package service

import (
	"errors"
	"strings"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ticketgate/gate-api/internal/domain"
)

const (
	// Letters, digits and - _ . : / #, not made only of separators.
	ticketCodeRegexPattern = `^(?![-_.:/#]+$)[A-Za-z0-9\-_.:/#]{3,100}$`
	entranceRegexPattern   = `^[\p{L}\p{N} \-_.'/()]{3,100}$`
)

var (
	// ErrInvalidInput wraps every validation failure returned by the
	// services as a Go error.
	ErrInvalidInput = errors.New("invalid input")

	errInvalidTicketCode = errors.New("must be 3-100 letters, digits or - _ . : / # and not only separators")
	errInvalidEntrance   = errors.New("must be 3-100 letters, digits, spaces or - _ . ' / ( )")

	ticketCodeExp = regexp2.MustCompile(ticketCodeRegexPattern, regexp2.None)
	entranceExp   = regexp2.MustCompile(entranceRegexPattern, regexp2.None)
)

func matches(exp *regexp2.Regexp, err error) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		ok, matchErr := exp.MatchString(s)
		if matchErr != nil || !ok {
			return err
		}
		return nil
	})
}

var (
	ticketCodeRules = []validation.Rule{validation.Required, validation.Length(3, 100), matches(ticketCodeExp, errInvalidTicketCode)}
	entranceRules   = []validation.Rule{validation.Required, validation.Length(3, 100), matches(entranceExp, errInvalidEntrance)}
)

func normalizeScan(req domain.ScanRequest) domain.ScanRequest {
	req.TicketCode = strings.TrimSpace(req.TicketCode)
	req.EntranceName = strings.TrimSpace(req.EntranceName)
	req.OperatorName = strings.TrimSpace(req.OperatorName)
	req.Direction = domain.Direction(strings.ToLower(strings.TrimSpace(string(req.Direction))))
	if req.Direction == "" {
		req.Direction = domain.DirectionEntry
	}

	return req
}

// ValidateScan checks a normalized scan request without touching storage.
func ValidateScan(req domain.ScanRequest) error {
	return validation.ValidateStruct(
		&req,
		validation.Field(&req.EventID, validation.Required),
		validation.Field(&req.TicketCode, ticketCodeRules...),
		validation.Field(&req.EntranceName, entranceRules...),
		validation.Field(&req.OperatorName, validation.Length(0, 100)),
		validation.Field(&req.Direction, validation.Required, validation.In(domain.DirectionEntry, domain.DirectionExit)),
	)
}

// ValidateTicketCode checks a trimmed ticket code.
func ValidateTicketCode(code string) error {
	return validation.Validate(code, ticketCodeRules...)
}
