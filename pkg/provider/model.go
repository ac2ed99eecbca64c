package provider

// Wire types of the Ergast compatible timing API. Every number is sent as a
// string.

type mrData[T any] struct {
	MRData T `json:"MRData"`
}

type page struct {
	Limit  string `json:"limit"`
	Offset string `json:"offset"`
	Total  string `json:"total"`
}

type scheduleResponse struct {
	page
	RaceTable struct {
		Season string `json:"season"`
		Races  []race `json:"Races"`
	} `json:"RaceTable"`
}

type race struct {
	Season   string  `json:"season"`
	Round    string  `json:"round"`
	RaceName string  `json:"raceName"`
	Circuit  circuit `json:"Circuit"`
	Date     string  `json:"date"`
	Time     string  `json:"time,omitempty"`
	Laps     []lap   `json:"Laps,omitempty"`
}

type circuit struct {
	CircuitID   string `json:"circuitId"`
	CircuitName string `json:"circuitName"`
}

type lap struct {
	Number  string   `json:"number"`
	Timings []timing `json:"Timings"`
}

type timing struct {
	DriverID string `json:"driverId"`
	Position string `json:"position"`
	Time     string `json:"time"`
}

type lapsResponse struct {
	page
	RaceTable struct {
		Season string `json:"season"`
		Round  string `json:"round"`
		Races  []race `json:"Races"`
	} `json:"RaceTable"`
}

type driversResponse struct {
	page
	DriverTable struct {
		Drivers []driver `json:"Drivers"`
	} `json:"DriverTable"`
}

type driver struct {
	DriverID   string `json:"driverId"`
	Code       string `json:"code,omitempty"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}
