package types

// ItemStatus represents the state of one asset inside a batch
type ItemStatus string

const (
	// ItemPending means the item is queued but not started
	ItemPending ItemStatus = "Pending"

	// ItemAnalyzing means the detector is being queried
	ItemAnalyzing ItemStatus = "Analyzing"

	// ItemSkipped means the detected crop was not worth applying
	ItemSkipped ItemStatus = "Skipped"

	// ItemApplying means the crop is being rendered
	ItemApplying ItemStatus = "Applying"

	// ItemApplied means the asset was replaced by its cropped version
	ItemApplied ItemStatus = "Applied"

	// ItemFailed means detection or transform failed
	ItemFailed ItemStatus = "Failed"
)

// String returns the string representation of ItemStatus
func (s ItemStatus) String() string {
	return string(s)
}

// IsActive returns true while the item is being worked on
func (s ItemStatus) IsActive() bool {
	return s == ItemAnalyzing || s == ItemApplying
}

// IsFinished returns true once the item reached a terminal state
func (s ItemStatus) IsFinished() bool {
	return s == ItemSkipped || s == ItemApplied || s == ItemFailed
}

// BatchItem references one asset plus its batch status
type BatchItem struct {
	Index   int        `json:"index"`
	AssetID string     `json:"asset_id"`
	Name    string     `json:"name"`
	Status  ItemStatus `json:"status"`
}

// BatchState is the whole-batch state
type BatchState string

const (
	BatchIdle      BatchState = "Idle"
	BatchRunning   BatchState = "Running"
	BatchCompleted BatchState = "Completed"
)

// String returns the string representation of BatchState
func (s BatchState) String() string {
	return string(s)
}
