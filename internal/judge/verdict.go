package judge

import "github.com/SAP-F-2025/exam-session-service/internal/models"

const (
	StatusAccepted     = "AC"
	StatusWrongAnswer  = "WA"
	StatusRuntimeError = "RTE"
	StatusTimeLimit    = "TLE"
	StatusMemoryLimit  = "MLE"
)

// Outcome is the judge response reduced to what gets persisted
type Outcome struct {
	Verdict models.Verdict
	Passed  int
	Total   int
	Details string
}

// Evaluate maps a judge response onto a verdict. Runtime, time and memory
// failures are runtime errors; wrong answers are failures.
func Evaluate(resp *Response, total int) Outcome {
	out := Outcome{Total: total}

	if !resp.CompileOK {
		out.Verdict = models.VerdictCompileError
		out.Details = resp.CompileStderr
		return out
	}

	var runtimeFailure *TestResult
	for i := range resp.Results {
		r := &resp.Results[i]
		switch r.Status {
		case StatusAccepted:
			out.Passed++
		case StatusRuntimeError, StatusTimeLimit, StatusMemoryLimit:
			if runtimeFailure == nil {
				runtimeFailure = r
			}
		}
	}

	switch {
	case runtimeFailure != nil:
		out.Verdict = models.VerdictRuntimeError
		out.Details = runtimeFailure.Status
		if runtimeFailure.Stderr != "" {
			out.Details += ": " + runtimeFailure.Stderr
		} else if runtimeFailure.Reason != "" {
			out.Details += ": " + runtimeFailure.Reason
		}
	case total > 0 && out.Passed == total:
		out.Verdict = models.VerdictPassed
	default:
		out.Verdict = models.VerdictFailed
	}
	return out
}
