// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns the gateway writes to.
package schema

// PortalIngestAttemptTable represents the 'portal.ingest_attempt' table
type PortalIngestAttemptTable struct {
	Table          string
	ID             string
	AttemptID      string
	UserID         string
	FileName       string
	MediaType      string
	FileSize       string
	State          string
	CandidateCount string
	Succeeded      string
	Failed         string
	Detail         string
	RecordedAt     string
}

// PortalIngestAttempt is the schema definition for portal.ingest_attempt
var PortalIngestAttempt = PortalIngestAttemptTable{
	Table:          "portal.ingest_attempt",
	ID:             "id",
	AttemptID:      "attemptid",
	UserID:         "userid",
	FileName:       "filename",
	MediaType:      "mediatype",
	FileSize:       "filesize",
	State:          "state",
	CandidateCount: "candidatecount",
	Succeeded:      "succeeded",
	Failed:         "failed",
	Detail:         "detail",
	RecordedAt:     "recordedat",
}

// InsertColumns lists the columns written by an insert, in order.
func (t PortalIngestAttemptTable) InsertColumns() []string {
	return []string{t.AttemptID, t.UserID, t.FileName, t.MediaType, t.FileSize, t.State, t.CandidateCount, t.Succeeded, t.Failed, t.Detail, t.RecordedAt}
}
