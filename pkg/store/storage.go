package store

import (
	"context"
	"errors"
	"time"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownEntity is returned when an edge references an entity id that
	// is not stored.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrDuplicateID is returned when an imported graph names a client or an
	// entity id twice.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidID is returned for ids that are not of the backend's id format.
	ErrInvalidID = errors.New("invalid id")
)

// DefaultClientColor is assigned to clients created without a color.
const DefaultClientColor = "#3b82f6"

// DefaultClaimLease is how long a worker may keep a snapshot in rendering
// before another delivery may claim it.
const DefaultClaimLease = 5 * time.Minute

// ClaimCutoff returns the update time before which a rendering snapshot is
// considered abandoned. A lease <= 0 never expires.
func ClaimCutoff(now time.Time, lease time.Duration) time.Time {
	if lease <= 0 {
		return time.Time{}
	}
	return now.Add(-lease)
}

// SnapshotStatus tracks a rendered access map export through the worker.
type SnapshotStatus string

const (
	SnapshotPending   SnapshotStatus = "pending"
	SnapshotRendering SnapshotStatus = "rendering"
	SnapshotCompleted SnapshotStatus = "completed"
	SnapshotFailed    SnapshotStatus = "failed"
)

// Snapshot is a request to render the access map for a client selection.
type Snapshot struct {
	ID            string         `json:"id"`
	Status        SnapshotStatus `json:"status"`
	ActiveClients []string       `json:"clients"`
	RingCount     int            `json:"ring_count"`
	SpokeCount    int            `json:"spoke_count"`
	ObjectKey     string         `json:"object_key,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ImportResult counts what ImportGraph stored.
type ImportResult struct {
	Clients  int `json:"clients"`
	Entities int `json:"entities"`
	Edges    int `json:"edges"`
}

// NetworkStore persists the access network and the snapshot requests made
// against it. Ids are assigned by the store and returned as strings.
type NetworkStore interface {
	GetGraph(ctx context.Context) (accessmap.Graph, error)

	CreateClient(ctx context.Context, client accessmap.Client) (accessmap.Client, error)
	CreateEntity(ctx context.Context, entity accessmap.Entity) (accessmap.Entity, error)
	CreateEdge(ctx context.Context, edge accessmap.Edge) (accessmap.Edge, error)
	// ImportGraph stores g in one transaction. Ids inside g are only used to
	// connect its edges to its own clients and entities; the stored rows get
	// fresh ids.
	ImportGraph(ctx context.Context, g accessmap.Graph) (ImportResult, error)

	CreateSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (Snapshot, error)
	// ClaimSnapshot moves a pending snapshot to rendering. A snapshot that
	// has been rendering for longer than lease is claimed again, since its
	// worker is assumed gone. ok is false when the snapshot is neither.
	ClaimSnapshot(ctx context.Context, id string, lease time.Duration) (snap Snapshot, ok bool, err error)
	CompleteSnapshot(ctx context.Context, id, objectKey string) error
	FailSnapshot(ctx context.Context, id, reason string) error
	// ReleaseSnapshot hands a claimed snapshot back to pending so a retried
	// message can claim it again.
	ReleaseSnapshot(ctx context.Context, id, reason string) error

	Close() error
}
