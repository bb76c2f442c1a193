package repository

import "errors"

// ErrSnapshotCorrupt is returned when a stored snapshot cannot be decoded.
var ErrSnapshotCorrupt = errors.New("stored snapshot is corrupt")
