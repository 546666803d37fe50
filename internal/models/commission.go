package models

// CommissionStatus is the lifecycle state of a commission. Transitions are
// unconstrained and happen only through an update that carries a NewStatus.
type CommissionStatus string

const (
	StatusNotStarted CommissionStatus = "not started"
	StatusStuck      CommissionStatus = "stuck"
	StatusCompleted  CommissionStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s CommissionStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusStuck, StatusCompleted:
		return true
	}
	return false
}

// Update is one progress entry appended to a commission. Entries are
// append-only; only the Read flag is ever mutated afterwards.
type Update struct {
	// Seq is a stable, monotonically increasing number assigned at append
	// time. Clients address updates by Seq, never by array position.
	Seq          int64            `bson:"seq" json:"id"`
	Title        string           `bson:"title" json:"title"`
	Description  string           `bson:"description" json:"description"`
	Timestamp    int64            `bson:"timestamp" json:"timestamp"`
	Read         bool             `bson:"read" json:"read"`
	NewStatus    CommissionStatus `bson:"newStatus,omitempty" json:"newStatus,omitempty"`
	AttachedFile bool             `bson:"attachedFile,omitempty" json:"attachedFile,omitempty"`

	// Code of the owning commission, filled in on reads so notification
	// items can link back. Not stored inside the embedded document.
	Code string `bson:"-" json:"code,omitempty"`
}

// Commission is one unit of commissioned work owned by a single client.
// The code doubles as the Mongo _id and the client-facing lookup token.
type Commission struct {
	Code            string           `bson:"_id" json:"code"`
	UserID          string           `bson:"userId" json:"userId"`
	Status          CommissionStatus `bson:"status" json:"status"`
	File            *string          `bson:"file" json:"file"`
	Deadline        int64            `bson:"deadline" json:"deadline"`
	Title           string           `bson:"title" json:"title"`
	Description     string           `bson:"description" json:"description"`
	Price           string           `bson:"price" json:"price"`
	DiscountedPrice *string          `bson:"discountedPrice" json:"discountedPrice"`
	CreatedAt       int64            `bson:"createdAt" json:"createdAt"`
	NextSeq         int64            `bson:"nextSeq" json:"-"`
	Updates         []Update         `bson:"updates" json:"updates"`
}

// CommissionDraft carries the admin-supplied fields for a new commission.
// Everything else (code, status, timestamps) is assigned server-side.
type CommissionDraft struct {
	UserID          string
	Title           string
	Description     string
	Price           string
	DiscountedPrice string
	Deadline        int64
}

// UpdateDraft carries the admin-supplied fields for a new update.
type UpdateDraft struct {
	Title        string
	Description  string
	NewStatus    CommissionStatus
	AttachedFile bool
}

// Alert is the singleton banner shown to all clients.
type Alert struct {
	Lines []string `bson:"lines" json:"lines"`
}
