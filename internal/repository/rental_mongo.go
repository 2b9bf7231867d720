package repository

import (
	"context"
	"regexp"
	"time"

	"rentalhub/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const rentalCollection = "rentals"

var rentalDocumentFields = map[string]string{
	domain.SortByID:          "_id",
	domain.SortByName:        "name",
	domain.SortByAddress:     "address",
	domain.SortByRoomCount:   "roomCount",
	domain.SortByPrice:       "price",
	domain.SortByDescription: "description",
	domain.SortByImage:       "image",
	domain.SortByCreatedAt:   "createdAt",
	domain.SortByUpdatedAt:   "updatedAt",
}

type rentalDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Address     string    `bson:"address"`
	RoomCount   int       `bson:"roomCount"`
	Price       float64   `bson:"price"`
	Description string    `bson:"description"`
	Image       string    `bson:"image,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func toRentalDocument(r *domain.Rental) rentalDocument {
	return rentalDocument{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		RoomCount:   r.RoomCount,
		Price:       r.Price,
		Description: r.Description,
		Image:       r.Image,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (d rentalDocument) toDomain() domain.Rental {
	return domain.Rental{
		ID:          d.ID,
		Name:        d.Name,
		Address:     d.Address,
		RoomCount:   d.RoomCount,
		Price:       d.Price,
		Description: d.Description,
		Image:       d.Image,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoRentalStore keeps rentals as documents in a MongoDB collection.
type MongoRentalStore struct {
	coll *mongo.Collection
}

func NewMongoRentalStore(db *mongo.Database) *MongoRentalStore {
	return &MongoRentalStore{coll: db.Collection(rentalCollection)}
}

// ConnectMongo opens a client and verifies the server is reachable.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}
	return client, nil
}

// EnsureIndexes creates the indexes used by the default ordering and
// the common sort fields.
func (s *MongoRentalStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "roomCount", Value: 1}}},
	})
	return errors.Wrap(err, "create rental indexes")
}

func (s *MongoRentalStore) Insert(ctx context.Context, rental *domain.Rental) error {
	if rental.ID == "" {
		rental.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rental.CreatedAt.IsZero() {
		rental.CreatedAt = now
	}
	rental.UpdatedAt = now

	_, err := s.coll.InsertOne(ctx, toRentalDocument(rental))
	return errors.Wrap(err, "insert rental")
}

func (s *MongoRentalStore) FindByID(ctx context.Context, id string) (*domain.Rental, error) {
	var doc rentalDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRentalNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find rental")
	}
	r := doc.toDomain()
	return &r, nil
}

func (s *MongoRentalStore) Count(ctx context.Context, f domain.RentalFilter) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, mongoRentalFilter(f))
	return n, errors.Wrap(err, "count rentals")
}

func (s *MongoRentalStore) Find(ctx context.Context, f domain.RentalFilter, srt domain.RentalSort, offset, limit int) ([]domain.Rental, error) {
	if limit <= 0 || offset < 0 {
		return []domain.Rental{}, nil
	}
	opts, err := mongoFindOptions(srt, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, mongoRentalFilter(f), opts)
}

func (s *MongoRentalStore) FindAll(ctx context.Context) ([]domain.Rental, error) {
	opts, err := mongoFindOptions(domain.RentalSort{}, 0, 0)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, bson.M{}, opts)
}

func (s *MongoRentalStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Rental, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find rentals")
	}
	var docs []rentalDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode rentals")
	}

	out := make([]domain.Rental, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *MongoRentalStore) UpdateByID(ctx context.Context, id string, patch domain.RentalPatch) (*domain.Rental, error) {
	set := mongoRentalSet(patch)
	set["updatedAt"] = time.Now().UTC()

	var doc rentalDocument
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRentalNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "update rental")
	}
	r := doc.toDomain()
	return &r, nil
}

func (s *MongoRentalStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete rental")
	}
	if res.DeletedCount == 0 {
		return domain.ErrRentalNotFound
	}
	return nil
}

// mongoRentalFilter matches the query literally, case-insensitively, in
// name or address.
func mongoRentalFilter(f domain.RentalFilter) bson.M {
	if f.Query == "" {
		return bson.M{}
	}
	rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name": rx},
		bson.M{"address": rx},
	}}
}

func mongoFindOptions(s domain.RentalSort, offset, limit int) (*options.FindOptions, error) {
	order := bson.D{}
	if s.Field != "" {
		field, ok := rentalDocumentFields[s.Field]
		if !ok {
			return nil, errors.Errorf("unsupported sort field %q", s.Field)
		}
		dir := 1
		if s.Desc {
			dir = -1
		}
		order = append(order, bson.E{Key: field, Value: dir})
	}
	if s.Field != domain.SortByCreatedAt {
		order = append(order, bson.E{Key: "createdAt", Value: 1})
	}
	if s.Field != domain.SortByID {
		order = append(order, bson.E{Key: "_id", Value: 1})
	}

	opts := options.Find().SetSort(order)
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts, nil
}

func mongoRentalSet(p domain.RentalPatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if p.RoomCount != nil {
		set["roomCount"] = *p.RoomCount
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Image != nil {
		set["image"] = *p.Image
	}
	return set
}
