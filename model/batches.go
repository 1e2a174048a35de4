package model

import "time"

// BatchState defines the lifecycle states of a vaccine batch.
type BatchState string

const (
	StateMinted       BatchState = "MINTED"       // Batch registered by manufacturer
	StateInTransit    BatchState = "IN_TRANSIT"   // Picked up by a distributor
	StateAtClinic     BatchState = "AT_CLINIC"    // Received by a clinic
	StateAdministered BatchState = "ADMINISTERED" // Doses administered, terminal
	StateExpired      BatchState = "EXPIRED"      // Derived: past expiry, never stored
	StateFlagged      BatchState = "FLAGGED"      // Derived: excursion or recall, never stored
)

// stateRank orders the stored states along the custody path.
var stateRank = map[BatchState]int{
	StateMinted:       1,
	StateInTransit:    2,
	StateAtClinic:     3,
	StateAdministered: 4,
}

// Rank returns the position of s on the custody path, or 0 for derived states.
func (s BatchState) Rank() int {
	return stateRank[s]
}

// CanAdvanceTo reports whether next is the single legal successor of s.
func (s BatchState) CanAdvanceTo(next BatchState) bool {
	return s.Rank() > 0 && next.Rank() == s.Rank()+1
}

// FlagReason records why a batch was flagged.
type FlagReason string

const (
	FlagExcursion FlagReason = "EXCURSION"
	FlagRecall    FlagReason = "RECALL"
)

// RecallInfo holds information about a regulator recall.
type RecallInfo struct {
	IsRecalled bool      `json:"isRecalled"`
	RecallID   string    `json:"recallId"`
	Reason     string    `json:"reason"`
	RecalledBy string    `json:"recalledBy"`
	RecalledAt time.Time `json:"recalledAt"`
}

// BatchRecord is the ledger record for one minted vaccine batch.
type BatchRecord struct {
	ObjectType     string       `json:"objectType"` // "Batch"
	TokenID        uint64       `json:"tokenId"`
	Lot            string       `json:"lot"`
	Expiry         time.Time    `json:"expiry"`
	MinTemp        int32        `json:"minTemp"` // tenths of a degree, inclusive
	MaxTemp        int32        `json:"maxTemp"` // tenths of a degree, inclusive
	MetadataHash   string       `json:"metadataHash"`
	Origin         string       `json:"origin"`
	State          BatchState   `json:"state"`
	Custodian      string       `json:"custodian"`
	Manufacturer   string       `json:"manufacturer"`
	Flagged        bool         `json:"flagged"`
	FlagReasons    []FlagReason `json:"flagReasons"`
	ExcursionCount uint32       `json:"excursionCount"`
	RecallInfo     RecallInfo   `json:"recallInfo"`
	ReadingCount   uint64       `json:"readingCount"`
	EventCount     uint64       `json:"eventCount"`
	CreatedAt      time.Time    `json:"createdAt"`
	LastUpdatedAt  time.Time    `json:"lastUpdatedAt"`
}

// IsExpiredAt reports whether the batch is past expiry at now. now == expiry is
// still valid.
func (b *BatchRecord) IsExpiredAt(now time.Time) bool {
	return now.After(b.Expiry)
}

// EffectiveState derives the state a reader should see at now. Administered is
// final history; otherwise a flag outranks expiry, which outranks the stored state.
func (b *BatchRecord) EffectiveState(now time.Time) BatchState {
	switch {
	case b.State == StateAdministered:
		return StateAdministered
	case b.Flagged:
		return StateFlagged
	case b.IsExpiredAt(now):
		return StateExpired
	default:
		return b.State
	}
}

// HasFlagReason reports whether reason was already recorded.
func (b *BatchRecord) HasFlagReason(reason FlagReason) bool {
	for _, r := range b.FlagReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// BatchDetails is the read view returned by queries.
type BatchDetails struct {
	Batch          *BatchRecord `json:"batch"`
	EffectiveState BatchState   `json:"effectiveState"`
	Expired        bool         `json:"expired"`
	TokenOwner     string       `json:"tokenOwner"`
}

// AuditEvent is the persisted copy of every event emitted for a batch.
type AuditEvent struct {
	ObjectType string    `json:"objectType"` // "BatchEvent"
	EventID    string    `json:"eventId"`
	TokenID    uint64    `json:"tokenId"`
	Seq        uint64    `json:"seq"`
	Name       string    `json:"name"`
	TxID       string    `json:"txId"`
	Actor      string    `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    string    `json:"payload"` // JSON event payload
}
