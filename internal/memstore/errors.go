package memstore

import (
	"fmt"
	"time"

	"github.com/jgoulah/gridmeter/internal/meter"
)

// DuplicateHourError is returned when a delta already exists for that hour.
type DuplicateHourError struct {
	SubscriberID int64
	HourStart    time.Time
}

func (e *DuplicateHourError) Error() string {
	return fmt.Sprintf("hourly delta already exists for subscriber %d at %s",
		e.SubscriberID, meter.FormatTimestamp(e.HourStart))
}
