// Package student implements the simulated student. Transitions are a pure
// function of (previous state, overall score, seed) so a session can be
// replayed deterministically.
package student

import (
	"fmt"
	"math/rand"

	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/schema"
)

// Score bands. At or above Good the student moves one phase toward calm,
// below Poor one phase away from it, in between the phase holds.
const (
	GoodScore = 0.8
	PoorScore = 0.5
)

const (
	goodFrustrationDrop = 0.15
	goodAttentionGain   = 0.10
	goodConfidenceGain  = 0.10
	poorFrustrationRise = 0.15
	poorAttentionDrop   = 0.10
	poorConfidenceDrop  = 0.08
	neutralSettle       = 0.05
	jitterSpan          = 0.06
)

// InitialState derives the student's starting condition from the scenario.
// The simulation premise is a student struggling with the current topic, so
// every session opens in the frustrated phase with elevated frustration.
// Afternoon slots additionally depress attention.
func InitialState(scenario schema.Scenario, cfg config.StudentConfig) schema.StudentState {
	attention := cfg.BaselineAttention
	switch scenario.TimeOfDay {
	case schema.TimeAfterLunch:
		attention -= 0.10
	case schema.TimeLateAfternoon:
		attention -= 0.15
	}
	return schema.StudentState{
		Phase:         schema.PhaseFrustrated,
		LearningStyle: scenario.LearningStyle,
		Attention:     schema.Clamp01(attention),
		Frustration:   schema.Clamp01(cfg.BaselineFrustration + 0.20),
		Confidence:    schema.Clamp01(cfg.BaselineConfidence - 0.10),
		Manifestation: schema.ManifestGivingUp,
	}
}

// Next advances the student by one turn. It never mutates prev; the returned
// state and narration depend only on the arguments, so equal inputs always
// produce equal outputs.
func Next(prev schema.StudentState, score float64, seed int64) (schema.StudentState, string) {
	rng := rand.New(rand.NewSource(seed))
	jitter := (rng.Float64() - 0.5) * jitterSpan

	next := prev
	switch {
	case score >= GoodScore:
		next.Phase = stepToward(prev.Phase, -1)
		next.Frustration = schema.Clamp01(prev.Frustration - goodFrustrationDrop + jitter)
		next.Attention = schema.Clamp01(prev.Attention + goodAttentionGain + jitter)
		next.Confidence = schema.Clamp01(prev.Confidence + goodConfidenceGain)
	case score < PoorScore:
		next.Phase = stepToward(prev.Phase, +1)
		next.Frustration = schema.Clamp01(prev.Frustration + poorFrustrationRise + jitter)
		next.Attention = schema.Clamp01(prev.Attention - poorAttentionDrop + jitter)
		next.Confidence = schema.Clamp01(prev.Confidence - poorConfidenceDrop)
	default:
		next.Frustration = schema.Clamp01(prev.Frustration - neutralSettle + jitter)
		next.Attention = schema.Clamp01(prev.Attention + jitter)
	}

	next.Manifestation = pickManifestation(next.Phase, rng)
	return next, narrate(next, score)
}

func stepToward(p schema.StudentPhase, delta int) schema.StudentPhase {
	n := schema.StudentPhase(int(p) + delta)
	if n < schema.PhaseCalm {
		return schema.PhaseCalm
	}
	if n > schema.PhaseEscalating {
		return schema.PhaseEscalating
	}
	return n
}

var phaseManifestations = map[schema.StudentPhase][]schema.Manifestation{
	schema.PhaseCalm:       {schema.ManifestSettled, schema.ManifestFocused},
	schema.PhaseEngaged:    {schema.ManifestFocused},
	schema.PhaseDistracted: {schema.ManifestFidgeting, schema.ManifestLookingAround, schema.ManifestDoodling},
	schema.PhaseFrustrated: {schema.ManifestGivingUp, schema.ManifestWithdrawn},
	schema.PhaseEscalating: {schema.ManifestActingOut, schema.ManifestGivingUp},
}

func pickManifestation(p schema.StudentPhase, rng *rand.Rand) schema.Manifestation {
	opts := phaseManifestations[p]
	if len(opts) == 0 {
		return schema.ManifestFidgeting
	}
	return opts[rng.Intn(len(opts))]
}

var manifestationDescriptions = map[schema.Manifestation]string{
	schema.ManifestSettled:       "sitting calmly and ready to work",
	schema.ManifestFocused:       "following along closely",
	schema.ManifestFidgeting:     "fidgeting with their pencil",
	schema.ManifestLookingAround: "looking around the room",
	schema.ManifestDoodling:      "doodling in the margins",
	schema.ManifestGivingUp:      "saying they can't do it",
	schema.ManifestWithdrawn:     "putting their head down",
	schema.ManifestActingOut:     "pushing the worksheet away",
}

func narrate(s schema.StudentState, score float64) string {
	desc := manifestationDescriptions[s.Manifestation]
	switch {
	case score >= GoodScore:
		return fmt.Sprintf("The student responds well and is now %s.", desc)
	case score < PoorScore:
		return fmt.Sprintf("The student grows more %s, %s.", s.Phase, desc)
	default:
		return fmt.Sprintf("The student stays %s, %s.", s.Phase, desc)
	}
}
