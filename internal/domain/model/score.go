package model

import "fmt"

// Score is a criterion rating. Unscored marks a criterion that has not been
// rated yet; rated values run from MinScore to MaxScore.
type Score int

// Score bounds.
const (
	Unscored Score = 0
	MinScore Score = 1
	MaxScore Score = 5
)

// ScoreFrom validates v as a Score. Zero is accepted and means Unscored.
func ScoreFrom(v int) (Score, error) {
	if v < int(Unscored) || v > int(MaxScore) {
		return Unscored, fmt.Errorf("%w: %d", ErrInvalidScore, v)
	}
	return Score(v), nil
}

// Rated reports whether s carries an actual rating.
func (s Score) Rated() bool {
	return s >= MinScore && s <= MaxScore
}
