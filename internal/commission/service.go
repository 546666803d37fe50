package commission

import (
	"context"
	"fmt"
	"sort"

	"commission-board/internal/models"
	"commission-board/internal/utils"
)

// DBLayer is what the service needs from the document store.
type DBLayer interface {
	Insert(ctx context.Context, c models.Commission) error
	GetByCode(ctx context.Context, code string) (*models.Commission, error)
	GetOwned(ctx context.Context, code, userID string) (*models.Commission, error)
	ListForUser(ctx context.Context, userID string) ([]models.Commission, error)
	ListWithUnread(ctx context.Context, userID string) ([]models.Commission, error)
	Exists(ctx context.Context, code string) (bool, error)
	AllocateSeq(ctx context.Context, code string) (int64, error)
	PushUpdate(ctx context.Context, code string, upd models.Update) error
	SetFile(ctx context.Context, code, path string) error
	MarkRead(ctx context.Context, code, userID string, seq int64) error
	MarkAllRead(ctx context.Context, code, userID string) error
	GetAlert(ctx context.Context) ([]string, error)
	CreateAlert(ctx context.Context, lines []string) error
	DeleteAlert(ctx context.Context) error
}

// DefaultUnreadLimit caps the notification dropdown.
const DefaultUnreadLimit = 3

// maxCodeAttempts bounds the uniqueness retry when generating codes.
// 56 random bits colliding five times in a row means the RNG is broken.
const maxCodeAttempts = 5

type Service struct {
	DB DBLayer
}

func NewService(db DBLayer) *Service {
	return &Service{DB: db}
}

// Create inserts a new commission with the fixed creation defaults and
// returns its generated code.
func (s *Service) Create(ctx context.Context, draft models.CommissionDraft) (string, error) {
	code, err := s.newCode(ctx)
	if err != nil {
		return "", err
	}

	c := models.Commission{
		Code:        code,
		UserID:      draft.UserID,
		Status:      models.StatusNotStarted,
		File:        nil,
		Deadline:    draft.Deadline,
		Title:       draft.Title,
		Description: draft.Description,
		Price:       draft.Price,
		CreatedAt:   utils.NowMillis(),
		NextSeq:     0,
		Updates:     []models.Update{},
	}
	if draft.DiscountedPrice != "" {
		dp := draft.DiscountedPrice
		c.DiscountedPrice = &dp
	}

	if err := s.DB.Insert(ctx, c); err != nil {
		return "", fmt.Errorf("failed to insert commission: %w", err)
	}
	return code, nil
}

func (s *Service) newCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := utils.GenerateCommissionCode()
		exists, err := s.DB.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique commission code")
}

// Get fetches one commission for the requester. Admins see any record;
// everyone else only their own. Updates come back newest-first.
func (s *Service) Get(ctx context.Context, code, requesterID string, admin bool) (*models.Commission, error) {
	var c *models.Commission
	var err error
	if admin {
		c, err = s.DB.GetByCode(ctx, code)
	} else {
		c, err = s.DB.GetOwned(ctx, code, requesterID)
	}
	if err != nil {
		return nil, err
	}

	sortUpdatesNewestFirst(c.Updates)
	stampCode(c)
	return c, nil
}

// List returns all commissions owned by userID.
func (s *Service) List(ctx context.Context, userID string) ([]models.Commission, error) {
	list, err := s.DB.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		stampCode(&list[i])
	}
	return list, nil
}

// Exists reports whether the code references a real commission.
func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	return s.DB.Exists(ctx, code)
}

// AppendUpdate allocates a sequence number, stamps the server timestamp
// and appends the update. A NewStatus on the draft also moves the
// commission's status, in the same store write as the append.
func (s *Service) AppendUpdate(ctx context.Context, code string, draft models.UpdateDraft) error {
	seq, err := s.DB.AllocateSeq(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to allocate update seq for %s: %w", code, err)
	}

	upd := models.Update{
		Seq:          seq,
		Title:        draft.Title,
		Description:  draft.Description,
		Timestamp:    utils.NowMillis(),
		Read:         false,
		NewStatus:    draft.NewStatus,
		AttachedFile: draft.AttachedFile,
	}

	if err := s.DB.PushUpdate(ctx, code, upd); err != nil {
		return fmt.Errorf("failed to append update to %s: %w", code, err)
	}
	return nil
}

// AttachFile records the path of the most recently attached file,
// replacing any previous one.
func (s *Service) AttachFile(ctx context.Context, code, path string) error {
	if err := s.DB.SetFile(ctx, code, path); err != nil {
		return fmt.Errorf("failed to set file for %s: %w", code, err)
	}
	return nil
}

// MarkRead flags one update, addressed by seq, as read.
func (s *Service) MarkRead(ctx context.Context, code, userID string, seq int64) error {
	return s.DB.MarkRead(ctx, code, userID, seq)
}

// MarkAllRead flags every update on the commission as read.
func (s *Service) MarkAllRead(ctx context.Context, code, userID string) error {
	return s.DB.MarkAllRead(ctx, code, userID)
}

// LatestUnread collects unread updates across all of the user's
// commissions, newest-first, returning the total count and the top
// `limit` entries.
func (s *Service) LatestUnread(ctx context.Context, userID string, limit int) (int, []models.Update, error) {
	if limit <= 0 {
		limit = DefaultUnreadLimit
	}

	list, err := s.DB.ListWithUnread(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	var unread []models.Update
	for i := range list {
		for _, upd := range list[i].Updates {
			if upd.Read {
				continue
			}
			upd.Code = list[i].Code
			unread = append(unread, upd)
		}
	}

	sortUpdatesNewestFirst(unread)

	count := len(unread)
	if len(unread) > limit {
		unread = unread[:limit]
	}
	if unread == nil {
		unread = []models.Update{}
	}
	return count, unread, nil
}

// Alert returns the current alert lines, or nil when no alert is set.
func (s *Service) Alert(ctx context.Context) ([]string, error) {
	return s.DB.GetAlert(ctx)
}

// SaveAlert creates the alert if none exists, and otherwise replaces it
// via delete-then-insert. Saving identical lines is a no-op so repeated
// admin submissions don't churn the store.
func (s *Service) SaveAlert(ctx context.Context, lines []string) error {
	current, err := s.DB.GetAlert(ctx)
	if err != nil {
		return err
	}

	if current == nil {
		return s.DB.CreateAlert(ctx, lines)
	}

	if equalLines(current, lines) {
		return nil
	}
	return s.ReplaceAlert(ctx, lines)
}

// ReplaceAlert swaps the singleton alert for the given lines.
func (s *Service) ReplaceAlert(ctx context.Context, lines []string) error {
	if err := s.DB.DeleteAlert(ctx); err != nil {
		return err
	}
	return s.DB.CreateAlert(ctx, lines)
}

// ClearAlert removes the alert entirely.
func (s *Service) ClearAlert(ctx context.Context) error {
	return s.DB.DeleteAlert(ctx)
}

// sortUpdatesNewestFirst orders by timestamp descending, seq breaking
// ties between updates appended within the same millisecond.
func sortUpdatesNewestFirst(updates []models.Update) {
	sort.SliceStable(updates, func(i, j int) bool {
		if updates[i].Timestamp != updates[j].Timestamp {
			return updates[i].Timestamp > updates[j].Timestamp
		}
		return updates[i].Seq > updates[j].Seq
	})
}

func stampCode(c *models.Commission) {
	for i := range c.Updates {
		c.Updates[i].Code = c.Code
	}
	if c.Updates == nil {
		c.Updates = []models.Update{}
	}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
