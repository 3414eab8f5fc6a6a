package models

import "github.com/recruit-dashboard/backend/internal/contacts"

// DashboardSession is the client-facing view of one uploaded contacts file.
type DashboardSession struct {
	ID               string           `json:"id"`
	File             FileInfo         `json:"file"`
	Columns          []string         `json:"columns"`
	Schema           contacts.Schema  `json:"schema"`
	Summary          contacts.Summary `json:"summary"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
	CreatedAt        int64            `json:"createdAt"`    // Unix ms
	LastAccessed     int64            `json:"lastAccessed"` // Unix ms
}
