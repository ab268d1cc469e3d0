package internal

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qenta-cee/demandware-wcp/config"
	"github.com/qenta-cee/demandware-wcp/entity"
	"github.com/qenta-cee/demandware-wcp/services"
)

const (
	collectionLog            = "payment_log"
	collectionOrders         = "orders"
	collectionBaskets        = "baskets"
	collectionPaymentMethods = "payment_methods"
	collectionNotifications  = "notifications"
)

type MongoDB struct {
	clientOptions    *options.ClientOptions
	database         string
	logRecordsNumber int64
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		clientOptions:    clientOptions,
		database:         conf.Mongo.Database,
		logRecordsNumber: conf.LogRecords,
	}
	return client, nil
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	err := connection.Disconnect(ctx)
	if err != nil {
		log.Println("mongodb disconnect error", err)
	}
}

// GetOrder looks up an order by the number/email/postal-code triple. All
// three values must match, so a caller holding only the order number cannot
// read or mutate the order.
func (m *MongoDB) GetOrder(ctx context.Context, orderNo, email, postalCode string) (*entity.Order, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{
		{Key: "order_no", Value: orderNo},
		{Key: "customer_email", Value: email},
		{Key: "billing_address.postal_code", Value: postalCode},
	}
	collection := connection.Database(m.database).Collection(collectionOrders)
	var order entity.Order
	if err = collection.FindOne(ctx, filter).Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder writes the mutable order fields in a single update, so the
// status transition and the payment transaction attributes are applied
// atomically or not at all.
func (m *MongoDB) UpdateOrder(ctx context.Context, order *entity.Order) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionOrders)
	filter := bson.D{{Key: "order_no", Value: order.OrderNo}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: order.Status},
			{Key: "payment_status", Value: order.PaymentStatus},
			{Key: "gateway_order_no", Value: order.GatewayOrderNo},
			{Key: "payment_instruments", Value: order.PaymentInstruments},
			{Key: "default_shipment.shipping_address", Value: order.DefaultShipment.ShippingAddress},
		}},
	}
	if _, err = collection.UpdateOne(ctx, filter, update); err != nil {
		return err
	}
	return nil
}

func (m *MongoDB) GetPaymentMethod(ctx context.Context, id string) (*entity.PaymentMethod, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionPaymentMethods)
	filter := bson.D{{Key: "id", Value: id}}
	var paymentMethod entity.PaymentMethod
	if err = collection.FindOne(ctx, filter).Decode(&paymentMethod); err != nil {
		return nil, err
	}
	return &paymentMethod, nil
}

func (m *MongoDB) GetBasket(ctx context.Context, customerEmail string) (*entity.Basket, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionBaskets)
	filter := bson.D{{Key: "customer_email", Value: customerEmail}}
	var basket entity.Basket
	if err = collection.FindOne(ctx, filter).Decode(&basket); err != nil {
		return nil, err
	}
	return &basket, nil
}

func (m *MongoDB) SaveBasket(ctx context.Context, basket *entity.Basket) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionBaskets)
	filter := bson.D{{Key: "customer_email", Value: basket.CustomerEmail}}
	set := bson.M{"$set": basket}
	_, err = collection.UpdateOne(ctx, filter, set, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	return nil
}

// SaveNotification stores the raw inbound gateway call for the audit trail.
func (m *MongoDB) SaveNotification(ctx context.Context, notification *entity.Notification) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionNotifications)
	_, err = collection.InsertOne(ctx, notification)
	return err
}

// WriteLogMessage stores a log record and trims the oldest records above the
// configured retention cap.
func (m *MongoDB) WriteLogMessage(data services.Data) error {
	ctx := context.Background()
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)
	collection := connection.Database(m.database).Collection(collectionLog)
	if _, err = collection.InsertOne(ctx, data); err != nil {
		return err
	}
	m.trimLogRecords(ctx, collection)
	return nil
}

// trimLogRecords deletes the oldest log records above the cap. The trim is
// best effort and never fails the write that triggered it.
func (m *MongoDB) trimLogRecords(ctx context.Context, collection *mongo.Collection) {
	count, err := collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return
	}
	excess := excessLogRecords(count, m.logRecordsNumber)
	if excess == 0 {
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "time", Value: 1}}).
		SetLimit(excess).
		SetProjection(bson.D{{Key: "_id", Value: 1}})
	cursor, err := collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return
	}
	var oldest []bson.M
	if err = cursor.All(ctx, &oldest); err != nil {
		return
	}
	ids := make([]interface{}, 0, len(oldest))
	for _, doc := range oldest {
		ids = append(ids, doc["_id"])
	}
	if len(ids) == 0 {
		return
	}
	if _, err = collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		log.Println("trim log records error", err)
	}
}

// excessLogRecords returns how many stored records exceed the retention
// limit; a limit of zero disables trimming.
func excessLogRecords(count, limit int64) int64 {
	if limit <= 0 || count <= limit {
		return 0
	}
	return count - limit
}
