package pipeline

// OutcomeKind tags the variant of a pipeline run's result.
type OutcomeKind string

const (
	// OutcomeAnswered means the run produced an assistant answer. Load
	// failures that were explained to the user still end here.
	OutcomeAnswered OutcomeKind = "answered"
	// OutcomeLoadFailed means the source could not be loaded and no
	// explanatory answer could be composed either.
	OutcomeLoadFailed OutcomeKind = "load_failed"
	// OutcomeRoutingAmbiguous means the user message could not be
	// classified.
	OutcomeRoutingAmbiguous OutcomeKind = "routing_ambiguous"
)

// Outcome is the result of one RunTurn. Exactly one variant applies:
// Answer is set for OutcomeAnswered, Reason for OutcomeLoadFailed,
// RawMessage for OutcomeRoutingAmbiguous.
type Outcome struct {
	Kind       OutcomeKind
	Answer     string
	Reason     string
	RawMessage string
}

func answered(text string) Outcome {
	return Outcome{Kind: OutcomeAnswered, Answer: text}
}

func loadFailed(reason string) Outcome {
	return Outcome{Kind: OutcomeLoadFailed, Reason: reason}
}

func routingAmbiguous(raw string) Outcome {
	return Outcome{Kind: OutcomeRoutingAmbiguous, RawMessage: raw}
}
