package store

import "time"

// WatchAborted closes a history row whose watch gave up before the backend
// reported a terminal status. The session itself may still be running.
const WatchAborted = "WatchAborted"

// WatchedSession is a locally recorded AR analysis session watch.
type WatchedSession struct {
	SessionID    string
	PracticeName string
	FinalStatus  string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// ReportSnapshot caches a fetched report as raw JSON so it can be
// re-rendered offline.
type ReportSnapshot struct {
	SessionID string
	Payload   []byte
	FetchedAt time.Time
}
