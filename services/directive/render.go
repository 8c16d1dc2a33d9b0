package directive

import (
	"encoding/json"
	"strconv"
	"time"
)

// Render serializes a directive back to its wire form: the marker on its own
// line followed by a compact JSON payload where one applies. Used for test
// fixtures and for the examples embedded in the system prompt; output is
// guaranteed to parse back to an equivalent directive.
func Render(d Directive) string {
	switch d.Kind {
	case ShowServices:
		return markerShowServices
	case ShowSlots:
		return markerShowSlots
	case Book:
		if d.Book == nil {
			return ""
		}
		pl := bookPayload{
			Intent:        "book",
			Service:       d.Book.ServiceName,
			Title:         d.Book.Title,
			Start:         d.Book.Start.Format(time.RFC3339),
			End:           d.Book.End.Format(time.RFC3339),
			AttendeeEmail: d.Book.AttendeeEmail,
			Name:          d.Book.Name,
			Phone:         d.Book.Phone,
			Company:       d.Book.Company,
			Details:       d.Book.Details,
		}
		b, err := json.Marshal(pl)
		if err != nil {
			return ""
		}
		return markerBook + "\n" + string(b)
	case SaveRequest:
		if d.SaveRequest == nil {
			return ""
		}
		pl := saveRequestPayload{
			Service:       d.SaveRequest.Service,
			Name:          d.SaveRequest.Name,
			Email:         d.SaveRequest.Email,
			Phone:         d.SaveRequest.Phone,
			Company:       d.SaveRequest.Company,
			Details:       d.SaveRequest.Details,
			Timeline:      d.SaveRequest.Timeline,
			Budget:        d.SaveRequest.Budget,
			SAPModule:     d.SaveRequest.SAPModule,
			AppType:       d.SaveRequest.AppType,
			TrainingTopic: d.SaveRequest.TrainingTopic,
		}
		if d.SaveRequest.Participants > 0 {
			pl.Participants = json.Number(strconv.Itoa(d.SaveRequest.Participants))
		}
		b, err := json.Marshal(pl)
		if err != nil {
			return ""
		}
		return markerSaveRequest + "\n" + string(b)
	default:
		return ""
	}
}
