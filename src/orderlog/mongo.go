package orderlog

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Protocol-Lattice/boutique-agents/src/order"
)

// DefaultCollection holds orders in MongoDB.
const DefaultCollection = "orders"

// MongoLog stores one document per order.
type MongoLog struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type orderDoc struct {
	OrderID    string    `bson:"order_id"`
	TrackingID string    `bson:"tracking_id"`
	ProductID  string    `bson:"product_id"`
	Quantity   int       `bson:"quantity"`
	TotalPaid  float64   `bson:"total_paid"`
	Status     string    `bson:"status"`
	CreatedAt  time.Time `bson:"created_at"`
}

func NewMongoLog(ctx context.Context, uri, database, collection string) (*MongoLog, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" || collection == "" {
		return nil, errors.New("mongo database and collection are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoLog{client: client, collection: client.Database(database).Collection(collection)}, nil
}

func (l *MongoLog) Append(ctx context.Context, o order.Order) error {
	_, err := l.collection.InsertOne(ctx, orderDoc{
		OrderID:    o.OrderID,
		TrackingID: o.TrackingID,
		ProductID:  o.ProductID,
		Quantity:   o.Quantity,
		TotalPaid:  o.TotalPaid,
		Status:     string(o.Status),
		CreatedAt:  time.Now().UTC(),
	})
	return err
}

func (l *MongoLog) All(ctx context.Context) ([]order.Order, error) {
	cur, err := l.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orders []order.Order
	for cur.Next(ctx) {
		var d orderDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		orders = append(orders, order.Order{
			OrderID:    d.OrderID,
			TrackingID: d.TrackingID,
			ProductID:  d.ProductID,
			Quantity:   d.Quantity,
			TotalPaid:  d.TotalPaid,
			Status:     order.Status(d.Status),
		})
	}
	return orders, cur.Err()
}

func (l *MongoLog) Close(ctx context.Context) error { return l.client.Disconnect(ctx) }
