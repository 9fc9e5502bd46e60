package sessionlog

// PredictionTransform turns the raw prediction of a terminal level into the
// value logged in the "prediction" field. present is false when the session
// made no prediction. Returning ok=false omits the field.
type PredictionTransform[P any] func(p P, present bool) (v any, ok bool)

// Identity logs the prediction unchanged when one was made.
func Identity[P any]() PredictionTransform[P] {
	return func(p P, present bool) (any, bool) {
		if !present {
			return nil, false
		}
		return p, true
	}
}

// Threshold logs whether a score reached t.
func Threshold(t float64) PredictionTransform[float64] {
	return func(score float64, present bool) (any, bool) {
		if !present {
			return nil, false
		}
		return score >= t, true
	}
}
