package domain

// Represents one fixed commute direction.
// A Route pairs an origin and destination with the time-of-day window
// (whole hours, both ends inclusive) in which departures are sampled.
type Route struct {
	Name        string
	Title       string
	Origin      Coordinates
	Destination Coordinates
	StartHour   int
	EndHour     int
}
