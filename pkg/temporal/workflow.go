// Package temporal holds the contract shared by the workflow starter (API
// server) and the worker: task queue name, workflow parameters and the
// terminal result shape.
package temporal

const (
	// TaskQueue is the Temporal task queue name for batch reconciliation.
	TaskQueue = "intake-backend"

	// ProgressQueryType is the workflow query exposing the running progress.
	ProgressQueryType = "progress"
)

// Workflow terminal statuses. Row-level errors alone never produce
// StatusFailed; it is reserved for workflow-fatal conditions such as an
// unreachable staged object.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ReconcileWorkflowParam contains parameters for the staged-batch
// reconciliation workflow.
type ReconcileWorkflowParam struct {
	ObjectName string
}

// Tallies are the running create/update counts of one reconciliation run.
type Tallies struct {
	PatientsCreated int `json:"patientsCreated"`
	PatientsUpdated int `json:"patientsUpdated"`
	VisitsCreated   int `json:"visitsCreated"`
	VisitsUpdated   int `json:"visitsUpdated"`
}

// Add accumulates another set of tallies into t.
func (t *Tallies) Add(o Tallies) {
	t.PatientsCreated += o.PatientsCreated
	t.PatientsUpdated += o.PatientsUpdated
	t.VisitsCreated += o.VisitsCreated
	t.VisitsUpdated += o.VisitsUpdated
}

// Progress is the best-effort telemetry payload published while a run is in
// flight.
type Progress struct {
	ProcessedCount  int     `json:"processedCount"`
	TotalCount      int     `json:"totalCount"`
	PercentComplete float64 `json:"percentComplete"`
	Tallies         Tallies `json:"runningTallies"`
}

// ReconcileResult is the terminal summary of one reconciliation run.
type ReconcileResult struct {
	Status           string   `json:"status"`
	ObjectName       string   `json:"objectName"`
	TotalRecords     int      `json:"totalRecords"`
	ProcessedRecords int      `json:"processedRecords"`
	Tallies

	Errors     []string `json:"errors"`
	ErrorCount int      `json:"errorCount"`
	// Error carries the workflow-fatal reason when Status is StatusFailed.
	Error string `json:"error,omitempty"`
}

// ProgressKey is the Redis key under which a run's progress is published.
func ProgressKey(workflowID string) string {
	return "reconcile:progress:" + workflowID
}
