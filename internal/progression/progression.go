// Package progression holds the pure assessment rules: the tier table
// per score band, the step progression decisions, and score math. It
// has no storage or transport concerns so the rules stay auditable and
// testable in isolation.
package progression

import (
	"fmt"

	"assessment-service/internal/models"
)

// Certification tiers produced by the band table. The REMAIN_* values
// are sentinels meaning "keep the level already held"; they are coerced
// to the held level before being stored as a final certification.
const (
	TierFail      = "FAIL"
	TierA1        = "A1"
	TierA2        = "A2"
	TierA2Advance = "A2_ADVANCE"
	TierRemainA2  = "REMAIN_A2"
	TierB1        = "B1"
	TierB2        = "B2"
	TierB2Advance = "B2_ADVANCE"
	TierRemainB2  = "REMAIN_B2"
	TierC1        = "C1"
	TierC2        = "C2"

	// FinalFailed marks a session that scored below the floor on step 1.
	FinalFailed = "FAILED"
)

const (
	FirstStep = 1
	LastStep  = 3
)

var stepLevels = map[int][]string{
	1: {models.LevelA1, models.LevelA2},
	2: {models.LevelB1, models.LevelB2},
	3: {models.LevelC1, models.LevelC2},
}

// LevelsForStep returns the two proficiency levels a step covers.
func LevelsForStep(step int) ([]string, error) {
	levels, ok := stepLevels[step]
	if !ok {
		return nil, fmt.Errorf("invalid step %d", step)
	}
	return levels, nil
}

// Score computes the step score percentage for correct answers out of
// total. Total must be positive; callers reject empty ledgers first.
func Score(correct, total int) float64 {
	return float64(correct) / float64(total) * 100
}

// TierFor maps a score to a certification tier for the given step.
// Bands are [0,25), [25,50), [50,75), [75,100] except step 3 which
// splits only at 25 and 50.
func TierFor(score float64, step int) string {
	switch step {
	case 1:
		switch {
		case score < 25:
			return TierFail
		case score < 50:
			return TierA1
		case score < 75:
			return TierA2
		default:
			return TierA2Advance
		}
	case 2:
		switch {
		case score < 25:
			return TierRemainA2
		case score < 50:
			return TierB1
		case score < 75:
			return TierB2
		default:
			return TierB2Advance
		}
	case 3:
		switch {
		case score < 25:
			return TierRemainB2
		case score < 50:
			return TierC1
		default:
			return TierC2
		}
	}
	return TierFail
}

// Outcome is the progression decision for one completed step.
type Outcome struct {
	Tier               string
	NextStep           int
	Status             models.SessionStatus
	FinalCertification string
	CanProceed         bool
}

// Apply runs the progression rule for the session's current step.
//   - Step 1: below 25 fails the session outright; 75 and above
//     advances to step 2; anything else completes with the tier earned.
//   - Step 2: 75 and above advances to step 3; anything else completes.
//   - Step 3: always completes.
//
// Sentinel tiers are coerced to the level already held when they become
// the final certification.
func Apply(step int, score float64) Outcome {
	tier := TierFor(score, step)
	out := Outcome{Tier: tier, NextStep: step}

	switch step {
	case 1:
		switch {
		case score < 25:
			out.Status = models.StatusFailed
			out.FinalCertification = FinalFailed
		case score >= 75:
			out.Status = models.StatusInProgress
			out.NextStep = 2
			out.CanProceed = true
		default:
			out.Status = models.StatusCompleted
			out.FinalCertification = coerceFinal(tier)
		}
	case 2:
		if score >= 75 {
			out.Status = models.StatusInProgress
			out.NextStep = 3
			out.CanProceed = true
		} else {
			out.Status = models.StatusCompleted
			out.FinalCertification = coerceFinal(tier)
		}
	default:
		out.Status = models.StatusCompleted
		out.FinalCertification = coerceFinal(tier)
	}
	return out
}

// coerceFinal rewrites the "remain" sentinels to the level the user
// already held. Kept as an explicit step so the band table above stays
// a literal transcription of the progression rules.
func coerceFinal(tier string) string {
	switch tier {
	case TierRemainA2:
		return TierA2
	case TierRemainB2:
		return TierB2
	default:
		return tier
	}
}

// Overall is the arithmetic mean of the recorded step scores. Zero for
// an empty slice, though the state machine never completes a session
// without at least one step result.
func Overall(results []models.StepResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.ScorePercentage
	}
	return sum / float64(len(results))
}
