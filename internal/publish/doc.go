// Package publish sends checkpoint results to the remote store.
//
// A Publisher never fails its caller. Every attempt produces a SyncRecord;
// when the store is missing or unreachable the result is appended to a local
// record file instead and the record is marked LoggedLocally. Records are
// optionally handed to a Journal for history.
package publish
