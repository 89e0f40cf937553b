package ports

import "context"

// ProvisionJournal records identities that are between Create and
// FinalizeCredential. A crash in that window leaves the directory holding an
// identity with only a temporary credential; entries that are never cleared
// make that state detectable out-of-band. The journal is best effort and
// never blocks provisioning: callers log journal failures and continue.
type ProvisionJournal interface {
	// MarkPending records that key is about to be created.
	MarkPending(ctx context.Context, key string) error

	// ClearPending removes the record once the credential is finalized.
	ClearPending(ctx context.Context, key string) error

	// StalePending returns keys that have stayed pending longer than the
	// journal's threshold.
	StalePending(ctx context.Context) ([]string, error)
}
