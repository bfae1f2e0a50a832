package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "adspace/internal/domain/booking"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/shared/money"
)

type PaymentRepository struct {
	col *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	col := db.Collection("agg_payment")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "provider_txn_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "status", Value: 1}},
	})
	return &PaymentRepository{col: col}
}

func (r *PaymentRepository) ByID(ctx context.Context, id domainpayment.PaymentID) (*domainpayment.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *PaymentRepository) ByProviderTxn(ctx context.Context, txnID string) (*domainpayment.Payment, error) {
	return r.findOne(ctx, bson.M{"provider_txn_id": txnID})
}

func (r *PaymentRepository) findOne(ctx context.Context, filter bson.M) (*domainpayment.Payment, error) {
	var doc paymentDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpayment.ErrPaymentNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *domainpayment.Payment) error {
	doc := newPaymentDocument(p)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domainpayment.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"booking_id": string(bookingID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainpayment.Payment
	for cur.Next(ctx) {
		var doc paymentDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *PaymentRepository) SuccessExists(ctx context.Context, bookingID domainbooking.BookingID) (bool, error) {
	filter := bson.M{"booking_id": string(bookingID), "status": string(domainpayment.StatusSuccess)}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Settle is a compare-and-set on the stored status: FindOneAndUpdate only
// matches while the payment is still PENDING, so concurrent webhook replays
// collapse to a single applied transition.
func (r *PaymentRepository) Settle(ctx context.Context, id domainpayment.PaymentID, to domainpayment.Status, now time.Time) (*domainpayment.Payment, bool, error) {
	filter := bson.M{"_id": string(id), "status": string(domainpayment.StatusPending)}
	update := bson.M{"$set": bson.M{"status": string(to), "updated_at": now.UTC().UnixMilli()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc paymentDocument
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toAggregate(), true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}
	// Already settled, or missing entirely.
	p, err := r.ByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

func (r *PaymentRepository) FailPending(ctx context.Context, bookingID domainbooking.BookingID, now time.Time) (int, error) {
	filter := bson.M{"booking_id": string(bookingID), "status": string(domainpayment.StatusPending)}
	update := bson.M{"$set": bson.M{"status": string(domainpayment.StatusFailed), "updated_at": now.UTC().UnixMilli()}}
	res, err := r.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

type paymentDocument struct {
	ID            string        `bson:"_id"`
	BookingID     string        `bson:"booking_id"`
	Amount        moneyDocument `bson:"amount"`
	Method        string        `bson:"method"`
	PayerContact  string        `bson:"payer_contact"`
	ProviderName  string        `bson:"provider_name"`
	ProviderTxnID string        `bson:"provider_txn_id,omitempty"`
	Status        string        `bson:"status"`
	CreatedAt     int64         `bson:"created_at"`
	UpdatedAt     int64         `bson:"updated_at"`
}

func newPaymentDocument(p *domainpayment.Payment) paymentDocument {
	return paymentDocument{
		ID:            string(p.ID),
		BookingID:     string(p.BookingID),
		Amount:        moneyDocument{Amount: p.Amount.Amount, Currency: p.Amount.Currency},
		Method:        string(p.Method),
		PayerContact:  p.PayerContact,
		ProviderName:  p.ProviderName,
		ProviderTxnID: p.ProviderTxnID,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.UnixMilli(),
		UpdatedAt:     p.UpdatedAt.UnixMilli(),
	}
}

func (d paymentDocument) toAggregate() *domainpayment.Payment {
	return &domainpayment.Payment{
		ID:            domainpayment.PaymentID(d.ID),
		BookingID:     domainbooking.BookingID(d.BookingID),
		Amount:        money.Money{Amount: d.Amount.Amount, Currency: d.Amount.Currency},
		Method:        domainpayment.Method(d.Method),
		PayerContact:  d.PayerContact,
		ProviderName:  d.ProviderName,
		ProviderTxnID: d.ProviderTxnID,
		Status:        domainpayment.Status(d.Status),
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
	}
}
