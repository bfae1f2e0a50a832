package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "adspace/internal/domain/booking"
	"adspace/internal/domain/listings"
	"adspace/internal/domain/shared/daterange"
	"adspace/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

var activeStates = []string{string(domainbooking.StatePending), string(domainbooking.StateConfirmed)}

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByAdvertiser(ctx context.Context, advertiserID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"advertiser_id": advertiserID})
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID listings.ListingID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"listing_id": string(listingID)})
}

// ActiveOverlapping translates the half-open overlap test into a range query:
// stored.start < dr.end AND stored.end > dr.start.
func (r *BookingRepository) ActiveOverlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id":  string(listingID),
		"state":       bson.M{"$in": activeStates},
		"range.start": bson.M{"$lt": dr.End.UnixMilli()},
		"range.end":   bson.M{"$gt": dr.Start.UnixMilli()},
	}
	return r.list(ctx, filter)
}

func (r *BookingRepository) CountConfirmed(ctx context.Context, listingID listings.ListingID) (int, error) {
	filter := bson.M{"listing_id": string(listingID), "state": string(domainbooking.StateConfirmed)}
	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID           string        `bson:"_id"`
	ListingID    string        `bson:"listing_id"`
	ListingOwner string        `bson:"listing_owner"`
	AdvertiserID string        `bson:"advertiser_id"`
	Range        rangeDocument `bson:"range"`
	Total        moneyDocument `bson:"total"`
	State        string        `bson:"state"`
	CreatedAt    int64         `bson:"created_at"`
	UpdatedAt    int64         `bson:"updated_at"`
	Version      int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:           string(b.ID),
		ListingID:    string(b.ListingID),
		ListingOwner: string(b.ListingOwner),
		AdvertiserID: b.AdvertiserID,
		Range:        rangeDocument{Start: b.Range.Start.UnixMilli(), End: b.Range.End.UnixMilli()},
		Total:        moneyDocument{Amount: b.Total.Amount, Currency: b.Total.Currency},
		State:        string(b.State),
		CreatedAt:    b.CreatedAt.UnixMilli(),
		UpdatedAt:    b.UpdatedAt.UnixMilli(),
		Version:      b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:           domainbooking.BookingID(d.ID),
		ListingID:    listings.ListingID(d.ListingID),
		ListingOwner: listings.OwnerID(d.ListingOwner),
		AdvertiserID: d.AdvertiserID,
		Range:        daterange.DateRange{Start: timestampToTime(d.Range.Start), End: timestampToTime(d.Range.End)},
		Total:        money.Money{Amount: d.Total.Amount, Currency: d.Total.Currency},
		State:        domainbooking.BookingState(d.State),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
		Version:      d.Version,
	}
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
