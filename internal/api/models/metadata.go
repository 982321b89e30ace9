package models

// Enums lists the enum values accepted by the search and predict
// endpoints, plus the volume bins predictions are classified into.
type Enums struct {
	Seasons    []string `json:"seasons"`
	WeekTypes  []string `json:"weekTypes"`
	TimesOfDay []string `json:"timesOfDay"`
	VolumeBins []int    `json:"volumeBins"`
}
