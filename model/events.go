package model

import "time"

// Event names emitted through the chaincode event stream.
const (
	EventBatchRegistered    = "BatchRegistered"
	EventCustodyTransferred = "CustodyTransferred"
	EventBatchAdministered  = "BatchAdministered"
	EventExcursionDetected  = "ExcursionDetected"
	EventBatchRecalled      = "BatchRecalled"
)

type BatchRegistered struct {
	TokenID      uint64    `json:"tokenId"`
	Lot          string    `json:"lot"`
	Manufacturer string    `json:"manufacturer"`
	Expiry       time.Time `json:"expiry"`
	MinTemp      int32     `json:"minTemp"`
	MaxTemp      int32     `json:"maxTemp"`
	MetadataHash string    `json:"metadataHash"`
	Origin       string    `json:"origin"`
}

type CustodyTransferred struct {
	TokenID  uint64     `json:"tokenId"`
	Lot      string     `json:"lot"`
	From     string     `json:"from"`
	To       string     `json:"to"`
	NewState BatchState `json:"newState"`
}

type BatchAdministered struct {
	TokenID uint64 `json:"tokenId"`
	Lot     string `json:"lot"`
	Clinic  string `json:"clinic"`
}

type ExcursionDetected struct {
	TokenID    uint64 `json:"tokenId"`
	Lot        string `json:"lot"`
	Reading    int32  `json:"reading"`
	MinTemp    int32  `json:"minTemp"`
	MaxTemp    int32  `json:"maxTemp"`
	ReportedBy string `json:"reportedBy"`
}

type BatchRecalled struct {
	TokenID    uint64 `json:"tokenId"`
	Lot        string `json:"lot"`
	RecallID   string `json:"recallId"`
	Reason     string `json:"reason"`
	RecalledBy string `json:"recalledBy"`
}
