package testdata

// Report summarizes a batch of feedback.
// @compile: keep summaries short
type Report struct {
	Summary string
	Score   float64
}
