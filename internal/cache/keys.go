package cache

import "fmt"

func AttendeeByTicketKey(eventID uint, ticketCode string) string {
	return fmt.Sprintf("attendee:ticket:%d:%s", eventID, ticketCode)
}

func AttendeeByIDKey(id uint) string {
	return fmt.Sprintf("attendee:id:%d", id)
}

func EventKey(eventID uint) string {
	return fmt.Sprintf("event:%d", eventID)
}

func RosterKey(eventID uint) string {
	return fmt.Sprintf("event:%d:roster", eventID)
}

func TicketTypeKey(eventID uint, name string) string {
	return fmt.Sprintf("event:%d:tickettype:%s", eventID, name)
}

func OccupancyKey(eventID uint) string {
	return fmt.Sprintf("event:%d:occupancy", eventID)
}
