package publishers

import (
	"strconv"
	"time"

	"github.com/Adda-Baaj/dakiya/internal/domain"
)

// Event is the payload published for every recorded exchange.
type Event struct {
	Source      string          `json:"source"`
	Exchange    domain.Exchange `json:"exchange"`
	PublishedAt time.Time       `json:"published_at"`
}

// NewEvent wraps an exchange for publishing.
func NewEvent(source string, ex domain.Exchange) Event {
	return Event{
		Source:      source,
		Exchange:    ex,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"exchange_id": e.Exchange.ID,
		"method":      e.Exchange.Method,
		"outcome":     "ok",
	}
	if e.Source != "" {
		attrs["source"] = e.Source
	}
	if e.Exchange.StatusCode > 0 {
		attrs["status_code"] = strconv.Itoa(e.Exchange.StatusCode)
	}
	if e.Exchange.Failed() {
		attrs["outcome"] = "error"
	}
	for k, v := range attrs {
		if v == "" {
			delete(attrs, k)
		}
	}
	return attrs
}
