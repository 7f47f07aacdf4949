package criteria

import "github.com/lumenlearn/teachsim/schema"

// Marker vocabularies for the rule checks. The core sets mirror the
// strategy lists of the source knowledge base; substring matching is done
// against the lowercased response.

var timeMarkers = map[schema.TimeOfDay][]string{
	schema.TimeMorning: {
		"morning routine", "clear expectations", "structured", "settle in", "plan for today",
	},
	schema.TimeAfterLunch: {
		"movement break", "active learning", "energy release", "stretch", "move around",
	},
	schema.TimeLateAfternoon: {
		"short task", "varied activities", "brain break", "quick activity", "almost done",
	},
}

var styleMarkers = map[schema.LearningStyle][]string{
	schema.StyleVisual: {
		"look at", "watch", "see", "show", "draw",
	},
	schema.StyleAuditory: {
		"listen", "hear", "tell", "say", "sound",
	},
	schema.StyleKinesthetic: {
		"try", "move", "touch", "build", "practice",
	},
}

var behaviorMarkers = map[schema.BehaviorTag][]string{
	schema.BehaviorAttention: {
		"let's focus", "watch carefully", "look at this", "eyes on me", "pay attention",
	},
	schema.BehaviorFrustration: {
		"you can do this", "let's try together", "take your time", "it's okay", "help", "deep breath",
	},
}

var subjectMarkers = map[schema.Subject][]string{
	schema.SubjectMath: {
		"break down", "step by step", "step-by-step", "manipulatives", "draw it out", "base-10", "blocks", "count",
	},
	schema.SubjectReading: {
		"sound it out", "look for clues", "picture walk", "sight words", "phonics", "comprehension",
	},
	schema.SubjectScience: {
		"observe", "experiment", "predict", "what do you think will happen", "investigate",
	},
	schema.SubjectSocialStudies: {
		"community", "map", "timeline", "share with the class", "discuss",
	},
}
