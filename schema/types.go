package schema

import "time"

// Subject identifies the academic subject of a scenario or strategy.
type Subject string

const (
	SubjectMath          Subject = "math"
	SubjectReading       Subject = "reading"
	SubjectScience       Subject = "science"
	SubjectSocialStudies Subject = "social_studies"
)

// TimeOfDay identifies the classroom time slot of a scenario.
type TimeOfDay string

const (
	TimeMorning       TimeOfDay = "morning"
	TimeAfterLunch    TimeOfDay = "after_lunch"
	TimeLateAfternoon TimeOfDay = "late_afternoon"
)

// LearningStyle identifies the student's dominant learning modality.
type LearningStyle string

const (
	StyleVisual      LearningStyle = "visual"
	StyleAuditory    LearningStyle = "auditory"
	StyleKinesthetic LearningStyle = "kinesthetic"
)

// BehaviorTag classifies the behavioral dimension a strategy addresses.
type BehaviorTag string

const (
	BehaviorAttention   BehaviorTag = "attention"
	BehaviorFrustration BehaviorTag = "frustration"
)

// Strategy is a stored example of effective teaching language.
// Immutable once stored; effectiveness is only changed by explicit re-scoring.
type Strategy struct {
	ID            string        `json:"id" yaml:"id"`
	Text          string        `json:"text" yaml:"text"`
	Subject       Subject       `json:"subject" yaml:"subject"`
	BehaviorTag   BehaviorTag   `json:"behavior_tag" yaml:"behavior_tag"`
	LearningStyle LearningStyle `json:"learning_style_tag" yaml:"learning_style_tag"`
	Effectiveness float64       `json:"effectiveness" yaml:"effectiveness"`
	Vector        []float32     `json:"vector,omitempty" yaml:"-"`
	CreatedAt     time.Time     `json:"created_at" yaml:"created_at"`
}

// Scenario is the situational context of a teaching turn. Immutable per turn.
type Scenario struct {
	Subject       Subject       `json:"subject" yaml:"subject"`
	TimeOfDay     TimeOfDay     `json:"time_of_day" yaml:"time_of_day"`
	Topic         string        `json:"topic" yaml:"topic"`
	LearningStyle LearningStyle `json:"learning_style" yaml:"learning_style"`
}

// Manifestation is the observable classroom behavior of the simulated student.
type Manifestation string

const (
	ManifestFocused       Manifestation = "focused"
	ManifestSettled       Manifestation = "settled"
	ManifestFidgeting     Manifestation = "fidgeting"
	ManifestLookingAround Manifestation = "looking_around"
	ManifestDoodling      Manifestation = "doodling"
	ManifestGivingUp      Manifestation = "giving_up"
	ManifestWithdrawn     Manifestation = "withdrawn"
	ManifestActingOut     Manifestation = "acting_out"
)

// StudentState holds the simulated student's condition. All numeric fields
// stay within [0,1]; only the state machine mutates it between turns.
type StudentState struct {
	Phase         StudentPhase  `json:"phase"`
	LearningStyle LearningStyle `json:"learning_style"`
	Attention     float64       `json:"attention"`
	Frustration   float64       `json:"frustration"`
	Confidence    float64       `json:"confidence"`
	Manifestation Manifestation `json:"manifestation"`
}

// StudentPhase is the discrete position on the engagement ladder.
type StudentPhase int

const (
	PhaseCalm StudentPhase = iota
	PhaseEngaged
	PhaseDistracted
	PhaseFrustrated
	PhaseEscalating
)

// String returns the string representation of StudentPhase.
func (p StudentPhase) String() string {
	switch p {
	case PhaseCalm:
		return "calm"
	case PhaseEngaged:
		return "engaged"
	case PhaseDistracted:
		return "distracted"
	case PhaseFrustrated:
		return "frustrated"
	case PhaseEscalating:
		return "escalating_frustration"
	default:
		return "unknown"
	}
}

// BehaviorContext derives the behavioral filter tag for a student state.
// Frustrated phases query frustration strategies, everything else attention.
func (s StudentState) BehaviorContext() BehaviorTag {
	if s.Phase == PhaseFrustrated || s.Phase == PhaseEscalating {
		return BehaviorFrustration
	}
	return BehaviorAttention
}

// TeacherTurn is one teacher response with the context it was evaluated in.
// Immutable once created.
type TeacherTurn struct {
	Text        string       `json:"text"`
	Timestamp   time.Time    `json:"timestamp"`
	Scenario    Scenario     `json:"scenario"`
	StateBefore StudentState `json:"state_before"`
}

// Criterion names one of the four scoring dimensions.
type Criterion string

const (
	CriterionTime     Criterion = "time_appropriateness"
	CriterionStyle    Criterion = "learning_style"
	CriterionBehavior Criterion = "behavioral_management"
	CriterionSubject  Criterion = "subject_support"
)

// StrategyMatch pairs a retrieved strategy with its ranking score
// (cosine similarity weighted by effectiveness).
type StrategyMatch struct {
	Strategy   Strategy `json:"strategy"`
	Similarity float64  `json:"similarity"`
	Score      float64  `json:"score"`
}

// EvaluationResult is the immutable outcome of scoring one teacher turn.
type EvaluationResult struct {
	PerCriterion map[Criterion]float64 `json:"per_criterion_scores"`
	Overall      float64               `json:"overall"`
	Matched      []StrategyMatch       `json:"matched_strategies"`
	Strengths    []string              `json:"strengths"`
	Suggestions  []string              `json:"suggestions"`
	Degraded     bool                  `json:"degraded,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
