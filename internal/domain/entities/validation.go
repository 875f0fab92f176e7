package entities

// ValidationResult is the normalized outcome of checking one answer.
type ValidationResult struct {
	Correct        bool
	Score          float64 // 1.0 for exact, similarity for accepted near-misses
	Feedback       string
	ExpectedAnswer string
	NearMiss       bool // accepted via typo tolerance ("did you mean")
}
