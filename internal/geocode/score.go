package geocode

import "strings"

// Base rank scores keyed by geocoder place type. Populated places beat
// administrative areas; a whole country is effectively a last resort.
var typeScores = map[string]float64{
	"city":          100,
	"town":          90,
	"village":       80,
	"hamlet":        70,
	"suburb":        60,
	"neighbourhood": 50,
	"municipality":  45,
	"county":        20,
	"state":         10,
	"country":       0,
}

const (
	// unrecognizedTypeScore slots unknown place types between
	// neighbourhoods and counties rather than discarding them.
	unrecognizedTypeScore = 40

	placeClassBonus    = 10
	countryMatchBonus  = 20
	importanceBonusCap = 10
)

// Score ranks a candidate for the given session country hint. Higher is
// better.
func Score(c Candidate, countryHint string) float64 {
	score, ok := typeScores[c.Type]
	if !ok {
		score = unrecognizedTypeScore
	}

	if c.Class == "place" {
		score += placeClassBonus
	}

	if countryHint != "" && c.CountryCode != "" && strings.EqualFold(c.CountryCode, countryHint) {
		score += countryMatchBonus
	}

	// Importance contributes at most importanceBonusCap regardless of
	// what the source reports.
	bonus := c.Importance * 10
	if bonus > importanceBonusCap {
		bonus = importanceBonusCap
	}
	if bonus > 0 {
		score += bonus
	}

	return score
}

// Rank returns the highest-scoring candidate. Ties keep the earliest
// candidate in input order. ok is false for an empty slice.
func Rank(candidates []Candidate, countryHint string) (best Candidate, ok bool) {
	bestScore := 0.0
	for _, c := range candidates {
		s := Score(c, countryHint)
		if !ok || s > bestScore {
			best = c
			bestScore = s
			ok = true
		}
	}
	return best, ok
}
