package booking

import "errors"

// ErrCalendarUnavailable reports that live availability could not be fetched
// at all. Distinct from a Conflict: without a live slot set there is nothing
// safe to re-offer.
var ErrCalendarUnavailable = errors.New("calendar collaborator unavailable")
