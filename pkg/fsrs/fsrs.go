package fsrs

import (
	"math"
	"time"
)

// Rating is the user's response to a card review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

func (r Rating) Valid() bool {
	return r >= Again && r <= Easy
}

// InitialDifficulty is the difficulty of a card that was never reviewed.
const InitialDifficulty = 5.0

// Params holds the parameters of the scheduler.
type Params struct {
	A                float64 // scales the overall memory increase
	B                float64 // difficulty exponent
	C                float64 // stability exponent
	D                float64 // retention effect scaler
	HardPenalty      float64 // growth multiplier for Hard, below 1
	EasyBonus        float64 // growth multiplier for Easy, above 1
	DesiredRetention float64 // target recall probability at the due date
}

func DefaultParams() *Params {
	return &Params{
		A:                0.2,
		B:                0.5,
		C:                0.1,
		D:                4.0,
		HardPenalty:      0.5,
		EasyBonus:        2.0,
		DesiredRetention: 0.9,
	}
}

// CardState holds the memory state of a card.
type CardState struct {
	Stability  float64
	Difficulty float64
	LastReview time.Time
}

// NextState calculates the next stability and difficulty after a review at now.
func (p *Params) NextState(current CardState, rating Rating, now time.Time) CardState {
	if current.Difficulty == 0 {
		current.Difficulty = InitialDifficulty
	}

	if rating == Again {
		return CardState{
			Stability:  1,
			Difficulty: math.Min(10, current.Difficulty+0.5),
			LastReview: now,
		}
	}

	difficulty := current.Difficulty
	switch rating {
	case Hard:
		difficulty = math.Min(10, difficulty+0.1)
	case Easy:
		difficulty = math.Max(1, difficulty-0.1)
	}

	return CardState{
		Stability:  p.calculateNewStability(current.Stability, current.Difficulty, rating),
		Difficulty: difficulty,
		LastReview: now,
	}
}

// calculateNewStability applies S' = S * (1 + a * D^(-b) * S^c * (e^(d * (1-R)) - 1) * g),
// where g is HardPenalty for Hard, EasyBonus for Easy and 1 for Good.
func (p *Params) calculateNewStability(stability, difficulty float64, rating Rating) float64 {
	if stability < 1 {
		stability = 1
	}
	if difficulty < 1 {
		difficulty = 1
	}

	factor := p.A * math.Pow(difficulty, -p.B) * math.Pow(stability, p.C)
	multiplier := math.Exp(p.D*(1-p.DesiredRetention)) - 1

	switch rating {
	case Hard:
		multiplier *= p.HardPenalty
	case Easy:
		multiplier *= p.EasyBonus
	}

	return stability * (1 + factor*multiplier)
}

// NextDueDate schedules the next review stability days after from, at least one day out.
func NextDueDate(from time.Time, stability float64) time.Time {
	days := math.Max(1, math.Round(stability))
	return from.Add(time.Duration(days) * 24 * time.Hour)
}
