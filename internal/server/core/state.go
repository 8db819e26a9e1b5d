package core

// AnalysisState tracks the analysis request attached to an editing session.
type AnalysisState int

const (
	AnalysisIdle    AnalysisState = iota
	AnalysisPending               // Collaborator request in flight
	AnalysisReady
	AnalysisFailed
)

func (s AnalysisState) String() string {
	switch s {
	case AnalysisIdle:
		return "idle"
	case AnalysisPending:
		return "pending"
	case AnalysisReady:
		return "ready"
	case AnalysisFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseAnalysisState is the inverse of String.
func ParseAnalysisState(s string) (AnalysisState, bool) {
	for _, st := range []AnalysisState{AnalysisIdle, AnalysisPending, AnalysisReady, AnalysisFailed} {
		if st.String() == s {
			return st, true
		}
	}
	return AnalysisIdle, false
}
