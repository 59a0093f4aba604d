// Package session stores planning sessions.
//
// Manager keeps sessions in memory, keyed by a case-insensitive ID. Generated
// IDs are four hex characters. With a SessionPersistence attached, sessions
// are written on creation and access, and sessions missing from memory are
// loaded on demand. FilePersistence stores one JSON file per session holding
// the board text, its library name and the barrier mode.
//
// Usage:
//
//	fp, err := session.NewFilePersistence("sessions")
//	if err != nil {
//		klog.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(fp)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		klog.Warning(err)
//	}
package session
