package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding account documents.
const CollectionName = "users"

type accountDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Username       string             `bson:"username"`
	Email          string             `bson:"email"`
	Password       string             `bson:"password"`
	Avatar         string             `bson:"avatar"`
	AvatarPublicID string             `bson:"avatarPublicId,omitempty"`
	RefreshToken   string             `bson:"refreshToken,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func (d *accountDocument) toModel() *models.Account {
	return &models.Account{
		ID:             d.ID.Hex(),
		Username:       d.Username,
		Email:          d.Email,
		PasswordHash:   d.Password,
		Avatar:         d.Avatar,
		AvatarPublicID: d.AvatarPublicID,
		RefreshToken:   d.RefreshToken,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		coll: db.Collection(CollectionName),
		// BSON dates carry millisecond precision.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// EnsureIndexes creates the unique indexes that guard username and email.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: FieldUsername, Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: FieldEmail, Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// duplicateField extracts the colliding field from an E11000 message such
// as "... index: email_1 dup key: { email: ... }".
func duplicateField(msg string) string {
	if i := strings.Index(msg, "index: "); i >= 0 {
		if strings.HasPrefix(msg[i+len("index: "):], FieldEmail) {
			return FieldEmail
		}
		return FieldUsername
	}
	if strings.Contains(msg, FieldEmail) {
		return FieldEmail
	}
	return FieldUsername
}

func mapMongoError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return common.ErrorNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return &DuplicateError{Field: duplicateField(err.Error())}
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var doc accountDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{FieldEmail: email})
}

func (r *MongoRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{FieldUsername: username})
}

func (r *MongoRepository) Exists(ctx context.Context, f Filter) (bool, error) {
	if f.empty() {
		return false, nil
	}

	or := bson.A{}
	if f.Username != "" {
		or = append(or, bson.M{FieldUsername: f.Username})
	}
	if f.Email != "" {
		or = append(or, bson.M{FieldEmail: f.Email})
	}
	filter := bson.M{"$or": or}
	if f.ExcludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(f.ExcludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}

	err := r.coll.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *MongoRepository) Insert(ctx context.Context, a *models.Account) (*models.Account, error) {
	now := r.now()
	doc := accountDocument{
		ID:             primitive.NewObjectID(),
		Username:       a.Username,
		Email:          a.Email,
		Password:       a.PasswordHash,
		Avatar:         a.Avatar,
		AvatarPublicID: a.AvatarPublicID,
		RefreshToken:   a.RefreshToken,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, mapMongoError(err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, u models.AccountUpdate) (*models.Account, error) {
	if u.IsEmpty() {
		return r.FindByID(ctx, id)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}

	set := bson.M{"updatedAt": r.now()}
	if u.Username != nil {
		set[FieldUsername] = *u.Username
	}
	if u.Email != nil {
		set[FieldEmail] = *u.Email
	}
	if u.Avatar != nil {
		set["avatar"] = u.Avatar.URL
		set["avatarPublicId"] = u.Avatar.PublicID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc accountDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return nil, mapMongoError(err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) updateOne(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrorNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *MongoRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"refreshToken": token}})
}

func (r *MongoRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.updateOne(ctx, id, bson.M{"$unset": bson.M{"refreshToken": ""}})
}

func (r *MongoRepository) FindByRefreshToken(ctx context.Context, id, token string) (*models.Account, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid, "refreshToken": token})
}

func (r *MongoRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
