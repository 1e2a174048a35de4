package model

import "time"

// TemperatureReading is one oracle report retained for regulator audit.
type TemperatureReading struct {
	ObjectType string    `json:"objectType"` // "TemperatureReading"
	TokenID    uint64    `json:"tokenId"`
	Seq        uint64    `json:"seq"`
	Reading    int32     `json:"reading"`
	ReportedBy string    `json:"reportedBy"`
	ReportedAt time.Time `json:"reportedAt"`
	TxID       string    `json:"txId"`
	Excursion  bool      `json:"excursion"`
}

// WithinRange reports whether reading lies in the inclusive range [min, max].
func WithinRange(reading, min, max int32) bool {
	return reading >= min && reading <= max
}
