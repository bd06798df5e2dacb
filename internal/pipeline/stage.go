package pipeline

// Stage is a step of the run state machine
type Stage string

// Stages in execution order
const (
	StageIdle               Stage = "idle"
	StageRateChecked        Stage = "rate_checked"
	StageTypeSelected       Stage = "type_selected"
	StageCandidatesSelected Stage = "candidates_selected"
	StageGenerated          Stage = "generated"
	StagePersisted          Stage = "persisted"
	StageCoverageRecorded   Stage = "coverage_recorded"
	StageStateAdvanced      Stage = "state_advanced"
	StageDone               Stage = "done"
	StageAborted            Stage = "aborted"
)

// ProgressEvent reports a stage transition
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called on every stage transition
type ProgressCallback func(event ProgressEvent)

// CommitMode selects how the article and its bookkeeping are written
type CommitMode string

const (
	// CommitTransactional writes article, coverage, and state in one transaction
	CommitTransactional CommitMode = "transactional"
	// CommitSequential writes them one after another; a later failure leaves the article live
	CommitSequential CommitMode = "sequential"
)

// Valid reports whether m is a known commit mode
func (m CommitMode) Valid() bool {
	return m == CommitTransactional || m == CommitSequential
}
