package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"commission-board/internal/models"
)

// ErrNotFound is returned when a commission does not exist or is not
// visible to the requesting user. Callers surface both cases as 403 so
// record existence never leaks.
var ErrNotFound = errors.New("commission not found")

const (
	commissionsCollection = "commissions"
	alertsCollection      = "alerts"
)

// DB is the document-store layer. Each method is one driver call; the
// store's per-document atomicity is the only concurrency control the
// data model needs.
type DB struct {
	Mongo *mongo.Database
}

func (d *DB) commissions() *mongo.Collection {
	return d.Mongo.Collection(commissionsCollection)
}

func (d *DB) alerts() *mongo.Collection {
	return d.Mongo.Collection(alertsCollection)
}

// ---------------- COMMISSIONS ----------------

// Insert stores a new commission. The code is the _id, so inserting a
// duplicate code fails at the store.
func (d *DB) Insert(ctx context.Context, c models.Commission) error {
	_, err := d.commissions().InsertOne(ctx, c)
	return err
}

// GetByCode fetches a commission without an ownership filter. Reserved
// for the administrator path.
func (d *DB) GetByCode(ctx context.Context, code string) (*models.Commission, error) {
	var c models.Commission
	err := d.commissions().FindOne(ctx, bson.M{"_id": code}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOwned fetches a commission only if userID owns it. Ownership lives
// in the query itself as defense in depth below the gate.
func (d *DB) GetOwned(ctx context.Context, code, userID string) (*models.Commission, error) {
	var c models.Commission
	err := d.commissions().FindOne(ctx, bson.M{"_id": code, "userId": userID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListForUser returns every commission owned by userID in natural store
// order.
func (d *DB) ListForUser(ctx context.Context, userID string) ([]models.Commission, error) {
	cursor, err := d.commissions().Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Commission
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListWithUnread returns the user's commissions that contain at least one
// unread update.
func (d *DB) ListWithUnread(ctx context.Context, userID string) ([]models.Commission, error) {
	filter := bson.M{
		"userId": userID,
		"updates": bson.M{
			"$elemMatch": bson.M{"read": false},
		},
	}

	cursor, err := d.commissions().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Commission
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether a commission with the given code exists.
func (d *DB) Exists(ctx context.Context, code string) (bool, error) {
	count, err := d.commissions().CountDocuments(ctx, bson.M{"_id": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AllocateSeq atomically increments the commission's update counter and
// returns the value to stamp onto the next update. Concurrent appends
// get distinct, increasing numbers.
func (d *DB) AllocateSeq(ctx context.Context, code string) (int64, error) {
	var before models.Commission
	err := d.commissions().FindOneAndUpdate(
		ctx,
		bson.M{"_id": code},
		bson.M{"$inc": bson.M{"nextSeq": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err == mongo.ErrNoDocuments {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return before.NextSeq, nil
}

// PushUpdate appends the update and, when it carries a NewStatus, sets
// the commission status in the same store operation.
func (d *DB) PushUpdate(ctx context.Context, code string, upd models.Update) error {
	change := bson.M{
		"$push": bson.M{"updates": upd},
	}
	if upd.NewStatus != "" {
		change["$set"] = bson.M{"status": upd.NewStatus}
	}

	res, err := d.commissions().UpdateOne(ctx, bson.M{"_id": code}, change)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFile overwrites the commission's attached-file path.
func (d *DB) SetFile(ctx context.Context, code, path string) error {
	res, err := d.commissions().UpdateOne(
		ctx,
		bson.M{"_id": code},
		bson.M{"$set": bson.M{"file": path}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRead flags a single update as read, addressed by its stable seq
// rather than array position.
func (d *DB) MarkRead(ctx context.Context, code, userID string, seq int64) error {
	res, err := d.commissions().UpdateOne(
		ctx,
		bson.M{"_id": code, "userId": userID},
		bson.M{"$set": bson.M{"updates.$[u].read": true}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"u.seq": seq}},
		}),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every update on the commission as read. Running it
// twice is a no-op the second time.
func (d *DB) MarkAllRead(ctx context.Context, code, userID string) error {
	res, err := d.commissions().UpdateOne(
		ctx,
		bson.M{"_id": code, "userId": userID},
		bson.M{"$set": bson.M{"updates.$[].read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------- ALERTS ----------------

// GetAlert returns the singleton alert's lines, or nil when no alert
// exists.
func (d *DB) GetAlert(ctx context.Context) ([]string, error) {
	var alert models.Alert
	err := d.alerts().FindOne(ctx, bson.M{}).Decode(&alert)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alert.Lines, nil
}

// CreateAlert inserts the alert document. The singleton invariant is
// owned by the service, which only calls this when no alert exists or
// right after DeleteAlert.
func (d *DB) CreateAlert(ctx context.Context, lines []string) error {
	_, err := d.alerts().InsertOne(ctx, models.Alert{Lines: lines})
	return err
}

// DeleteAlert removes every alert document.
func (d *DB) DeleteAlert(ctx context.Context) error {
	_, err := d.alerts().DeleteMany(ctx, bson.M{})
	return err
}
