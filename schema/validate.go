package schema

import (
	"fmt"
	"strings"
)

// FieldError reports a single invalid or missing scenario field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("scenario validation error [%s]: %s", e.Field, e.Message)
}

// FieldErrors is a collection of scenario field errors.
type FieldErrors []FieldError

func (errs FieldErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("malformed scenario, %d error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. [%s] %s\n", i+1, err.Field, err.Message))
	}
	return b.String()
}

var validSubjects = map[Subject]bool{
	SubjectMath:          true,
	SubjectReading:       true,
	SubjectScience:       true,
	SubjectSocialStudies: true,
}

var validTimes = map[TimeOfDay]bool{
	TimeMorning:       true,
	TimeAfterLunch:    true,
	TimeLateAfternoon: true,
}

var validStyles = map[LearningStyle]bool{
	StyleVisual:      true,
	StyleAuditory:    true,
	StyleKinesthetic: true,
}

// Validate checks that every required scenario field is present and drawn
// from its enumerated domain. A non-nil return is fatal for the turn only;
// the caller keeps its prior student state.
func (sc Scenario) Validate() error {
	var errs FieldErrors
	if sc.Subject == "" {
		errs = append(errs, FieldError{Field: "subject", Message: "subject is required"})
	} else if !validSubjects[sc.Subject] {
		errs = append(errs, FieldError{Field: "subject", Message: fmt.Sprintf("unknown subject %q", sc.Subject)})
	}
	if sc.TimeOfDay == "" {
		errs = append(errs, FieldError{Field: "time_of_day", Message: "time_of_day is required"})
	} else if !validTimes[sc.TimeOfDay] {
		errs = append(errs, FieldError{Field: "time_of_day", Message: fmt.Sprintf("unknown time_of_day %q", sc.TimeOfDay)})
	}
	if sc.LearningStyle == "" {
		errs = append(errs, FieldError{Field: "learning_style", Message: "learning_style is required"})
	} else if !validStyles[sc.LearningStyle] {
		errs = append(errs, FieldError{Field: "learning_style", Message: fmt.Sprintf("unknown learning_style %q", sc.LearningStyle)})
	}
	if strings.TrimSpace(sc.Topic) == "" {
		errs = append(errs, FieldError{Field: "topic", Message: "topic is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateStrategy checks a strategy before it enters the index.
func ValidateStrategy(s Strategy, dimensions int) error {
	var errs FieldErrors
	if s.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	}
	if strings.TrimSpace(s.Text) == "" {
		errs = append(errs, FieldError{Field: "text", Message: "text is required"})
	}
	if !validSubjects[s.Subject] {
		errs = append(errs, FieldError{Field: "subject", Message: fmt.Sprintf("unknown subject %q", s.Subject)})
	}
	if s.BehaviorTag != BehaviorAttention && s.BehaviorTag != BehaviorFrustration {
		errs = append(errs, FieldError{Field: "behavior_tag", Message: fmt.Sprintf("unknown behavior_tag %q", s.BehaviorTag)})
	}
	if !validStyles[s.LearningStyle] {
		errs = append(errs, FieldError{Field: "learning_style_tag", Message: fmt.Sprintf("unknown learning_style_tag %q", s.LearningStyle)})
	}
	if s.Effectiveness < 0 || s.Effectiveness > 1 {
		errs = append(errs, FieldError{Field: "effectiveness", Message: fmt.Sprintf("effectiveness %.4f outside [0,1]", s.Effectiveness)})
	}
	if dimensions > 0 && len(s.Vector) != dimensions {
		errs = append(errs, FieldError{Field: "vector", Message: fmt.Sprintf("vector dimension %d, index expects %d", len(s.Vector), dimensions)})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
