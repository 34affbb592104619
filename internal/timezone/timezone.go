package timezone

import (
	"time"
	_ "time/tzdata"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("CET")
	if err != nil {
		panic(err)
	}
}

// listing end dates and expiry checks are always computed in CET,
// whatever the host timezone is.
func Now() time.Time {
	return time.Now().In(Location)
}
