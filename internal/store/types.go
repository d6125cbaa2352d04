// Package store is the relational persistence layer: blocks, events,
// sessions, eras, election phases/scores, warnings, indexer state, and the
// reimport queue, over a WAL-mode SQLite file. All writes go through typed
// operations that encapsulate the schema's merge rules; nothing else in the
// process touches SQL directly.
package store

// Chain tags used throughout the store's per-chain operations.
type ChainTag string

const (
	ChainRC ChainTag = "rc"
	ChainAH ChainTag = "ah"
)

// Block is one finalized block header summary.
type Block struct {
	BlockNumber uint64
	Timestamp   int64
}

// Event is one filtered runtime event belonging to a block.
type Event struct {
	ID          int64
	BlockNumber uint64
	EventID     string
	EventType   string
	Data        string
}

// Era is the validator-rotation era row.
type Era struct {
	EraID               uint64
	SessionStart        uint64
	SessionEnd          *uint64
	StartTime           int64
	InflationTotal      *string
	InflationValidators *string
	InflationTreasury   *string
	ValidatorsElected   *uint64
	// EndTime is derived at read time from the activation_timestamp of the
	// session with id = session_end, not stored.
	EndTime *int64
}

// Session is the per-session row, possibly pre-created for a future session
// not yet reported ended.
type Session struct {
	SessionID            uint64
	BlockNumber          *uint64
	ActivationTimestamp  *int64
	ActiveEraID          *uint64
	PlannedEraID         *uint64
	ValidatorPointsTotal uint64
}

// ElectionPhasePayload carries the name the state machine recognizes.
type ElectionPhasePayload string

const (
	PhaseOff              ElectionPhasePayload = "Off"
	PhaseSnapshot         ElectionPhasePayload = "Snapshot"
	PhaseSigned           ElectionPhasePayload = "Signed"
	PhaseSignedValidation ElectionPhasePayload = "SignedValidation"
	PhaseUnsigned         ElectionPhasePayload = "Unsigned"
	PhaseDone             ElectionPhasePayload = "Done"
	PhaseExport           ElectionPhasePayload = "Export"
)

// ElectionPhase is one append-only phase-transition log row.
type ElectionPhase struct {
	ID                     int64
	EraID                  uint64
	BlockNumber            uint64
	Round                  uint64
	Phase                  ElectionPhasePayload
	EventID                string
	Timestamp              int64
	ValidatorCandidates    *uint64
	NominatorCandidates    *uint64
	TargetValidatorCount   *uint64
	MinimumScore           *string
	SortedScores           *string
	QueuedSolutionScore    *string
	ValidatorsElected      *uint64
	ExpectedDurationBlocks *uint64
	Status                 *string
}

// ElectionScoreStatus is the election-score submission status enum.
type ElectionScoreStatus string

const (
	ScoreRegistered ElectionScoreStatus = "registered"
	ScoreRewarded   ElectionScoreStatus = "rewarded"
	ScoreSlashed    ElectionScoreStatus = "slashed"
	ScoreEjected    ElectionScoreStatus = "ejected"
	ScoreDiscarded  ElectionScoreStatus = "discarded"
	ScoreBailed     ElectionScoreStatus = "bailed"
)

// IsTerminal reports whether a status is terminal (immutable).
func (s ElectionScoreStatus) IsTerminal() bool {
	return s != ScoreRegistered
}

// ElectionScore is one (round, submitter) submission row.
type ElectionScore struct {
	Round           uint64
	Submitter       string
	BlockNumber     uint64
	MinimalStake    string
	SumStake        string
	SumStakeSquared string
	Status          ElectionScoreStatus
	EraID           *uint64
	CreatedAt       int64
	UpdatedAt       int64
}

// WarningSeverity is the warning severity enum.
type WarningSeverity string

const (
	SeverityInfo    WarningSeverity = "info"
	SeverityWarning WarningSeverity = "warning"
	SeverityError   WarningSeverity = "error"
)

// WarningType names the warning catalog entries.
const (
	WarningTiming          = "timing"
	WarningMissingEvent    = "missing_event"
	WarningUnexpectedEvent = "unexpected_event"
	WarningElectionIssue   = "election_issue"
)

// Warning is an append-only observability row.
type Warning struct {
	ID          int64
	EraID       *uint64
	SessionID   *uint64
	BlockNumber uint64
	Type        string
	Message     string
	Severity    WarningSeverity
	Timestamp   int64
}

// ReimportStatus is the reimport_requests status enum.
type ReimportStatus string

const (
	ReimportPending    ReimportStatus = "pending"
	ReimportProcessing ReimportStatus = "processing"
	ReimportCompleted  ReimportStatus = "completed"
	ReimportFailed     ReimportStatus = "failed"
)

// ReimportChain is the reimport_requests chain enum ("relay_chain"/"asset_hub"),
// distinct from the internal ChainTag ("rc"/"ah") used for table dispatch.
type ReimportChain string

const (
	ReimportChainRC ReimportChain = "relay_chain"
	ReimportChainAH ReimportChain = "asset_hub"
)

// ReimportRequest is one administrative reimport queue row.
type ReimportRequest struct {
	ID          int64
	Chain       ReimportChain
	BlockNumber uint64
	Status      ReimportStatus
	SubmittedAt int64
	CompletedAt *int64
	Error       *string
}
