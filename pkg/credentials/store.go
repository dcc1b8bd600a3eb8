// Package credentials implements the credential store contract used by
// the USER_PASS authenticator: a flat (name, pass) lookup with a
// pluggable backend. The canonical backend is a CSV file (FileStore);
// SQLStore is a supplemental alternate backend for operators who keep
// credentials in Postgres instead of a file.
package credentials

import "context"

// Store answers whether (name, pass) is a valid credential pair.
// Implementations must treat a missing backend (file absent, database
// unreachable) as "deny", never as a panic or a crash — USER_PASS
// logins are simply refused until the backend is available again.
type Store interface {
	Lookup(ctx context.Context, name, pass string) bool
}

// Record is a single (name, pass) credential pair, equal bytewise.
type Record struct {
	Name string
	Pass string
}
