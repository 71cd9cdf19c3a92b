// File: api/schemas/history.go
package schemas

import "time"

// ActionType enumerates the browser actions the controller understands. The
// vocabulary is deliberately small; anything richer belongs to the base agent
// behind the controller.
type ActionType string

const (
	ActionNavigate ActionType = "NAVIGATE" // Navigates to a URL.
	ActionClick    ActionType = "CLICK"    // Clicks on a UI element.
	ActionFill     ActionType = "FILL"     // Types text into an input field.
	ActionWait     ActionType = "WAIT"     // Pauses for a fixed duration.
	ActionDone     ActionType = "DONE"     // Declares the task complete.
)

// Action is a single browser instruction. Value carries the literal argument
// (URL, text, duration). SecretKey, when set, names an entry in the run's
// sensitive-value map; the resolved value never appears in exported
// artifacts, only the key name does.
type Action struct {
	Type      ActionType `json:"type" yaml:"type"`
	Selector  string     `json:"selector,omitempty" yaml:"selector,omitempty"`
	Value     string     `json:"value,omitempty" yaml:"value,omitempty"`
	SecretKey string     `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	Message   string     `json:"message,omitempty" yaml:"message,omitempty"`
}

// ActionResult captures the outcome of one executed action.
type ActionResult struct {
	Done             bool   `json:"is_done"`
	Success          bool   `json:"success"`
	ExtractedContent string `json:"extracted_content,omitempty"`
	Error            string `json:"error,omitempty"`
	IncludeInMemory  bool   `json:"include_in_memory"`
}

// StepInfo carries the loop position into the base agent's Step call.
type StepInfo struct {
	Step     int `json:"step"`
	MaxSteps int `json:"max_steps"`
}

// IsLastStep reports whether this is the final permitted iteration.
func (s StepInfo) IsLastStep() bool {
	return s.Step >= s.MaxSteps-1
}

// PageState is a snapshot of the browser page at the end of a step.
// Screenshot holds raw PNG bytes and serializes as base64.
type PageState struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Screenshot []byte `json:"screenshot,omitempty"`
}

// StepMetadata records timing information for a single step.
type StepMetadata struct {
	StepNumber int           `json:"step_number"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// HistoryRecord is one entry in the run history: the actions taken, their
// results and the page state afterwards.
type HistoryRecord struct {
	Actions  []Action      `json:"actions,omitempty"`
	Results  []ActionResult `json:"results"`
	State    PageState     `json:"state"`
	Metadata *StepMetadata `json:"metadata,omitempty"`
}

// History is the ordered sequence of step records produced by a run.
type History struct {
	Records []HistoryRecord `json:"records"`
}

// Append adds a record to the history.
func (h *History) Append(record HistoryRecord) {
	h.Records = append(h.Records, record)
}

// Len returns the number of records.
func (h *History) Len() int {
	return len(h.Records)
}

// IsDone reports whether the most recent record declared the task complete.
func (h *History) IsDone() bool {
	last := h.lastResult()
	return last != nil && last.Done
}

// IsSuccessful reports whether the run completed and its final result
// succeeded.
func (h *History) IsSuccessful() bool {
	last := h.lastResult()
	return last != nil && last.Done && last.Success
}

// FinalResult returns the extracted content of the terminal result, if any.
func (h *History) FinalResult() string {
	last := h.lastResult()
	if last == nil {
		return ""
	}
	return last.ExtractedContent
}

// AppendFailure appends a synthetic failure record. The run loop uses it to
// report step-budget exhaustion as a recorded outcome rather than an error.
func (h *History) AppendFailure(message string) {
	h.Append(HistoryRecord{
		Results: []ActionResult{{
			Error:           message,
			IncludeInMemory: true,
		}},
	})
}

func (h *History) lastResult() *ActionResult {
	if len(h.Records) == 0 {
		return nil
	}
	results := h.Records[len(h.Records)-1].Results
	if len(results) == 0 {
		return nil
	}
	return &results[len(results)-1]
}
