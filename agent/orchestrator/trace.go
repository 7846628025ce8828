package orchestrator

import (
	"time"

	contractx "github.com/harborins/concierge/agent/contract"
)

// StepTiming is one executed step's timing and outcome classification.
type StepTiming struct {
	Operation string                  `json:"operation"`
	Group     int                     `json:"group"`
	Required  bool                    `json:"required"`
	Elapsed   time.Duration           `json:"elapsed"`
	OK        bool                    `json:"ok"`
	ErrKind   contractx.ToolErrorKind `json:"err_kind,omitempty"`
	Attempts  int                     `json:"attempts,omitempty"`
}

// RunTrace is the diagnostic record of one orchestration run.
type RunTrace struct {
	RunID          string                   `json:"run_id"`
	Intent         contractx.IntentKind     `json:"intent"`
	IntentSource   contractx.IntentSource   `json:"intent_source"`
	IdentitySource contractx.IdentitySource `json:"identity_source"`
	NeedsIdentity  bool                     `json:"needs_identity,omitempty"`
	Degradation    contractx.RunDegradation `json:"degradation"`
	ResponseKind   contractx.ResponseKind   `json:"response_kind"`
	Steps          []StepTiming             `json:"steps,omitempty"`
	StartedAt      time.Time                `json:"started_at"`
	Elapsed        time.Duration            `json:"elapsed"`
}

func stepTimings(outcomes []contractx.StepOutcome) []StepTiming {
	if len(outcomes) == 0 {
		return nil
	}
	timings := make([]StepTiming, 0, len(outcomes))
	for _, o := range outcomes {
		t := StepTiming{
			Operation: o.Step.Operation,
			Group:     o.Step.Group,
			Required:  o.Step.Required,
			Elapsed:   o.Elapsed,
			OK:        o.OK(),
		}
		if o.Err != nil {
			t.ErrKind = o.Err.Kind
			t.Attempts = o.Err.Attempts
		}
		timings = append(timings, t)
	}
	return timings
}
