// Package mongodb реализует хранилище пользователей на MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

const usersCollection = "users"

// Storage хранит пользователей в коллекции users.
type Storage struct {
	client *mongo.Client
	users  *mongo.Collection
}

// userDocument — представление пользователя в MongoDB.
type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	FullName     string             `bson:"fullName"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	Password     string             `bson:"password,omitempty"`
	Avatar       string             `bson:"avatar"`
	CoverImage   string             `bson:"coverImage"`
	RefreshToken *string            `bson:"refreshToken,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

// publicProjection перечисляет поля, которые разрешено отдавать клиенту.
var publicProjection = bson.D{
	{Key: "_id", Value: 1},
	{Key: "fullName", Value: 1},
	{Key: "username", Value: 1},
	{Key: "email", Value: 1},
	{Key: "avatar", Value: 1},
	{Key: "coverImage", Value: 1},
	{Key: "createdAt", Value: 1},
	{Key: "updatedAt", Value: 1},
}

// New подключается к MongoDB и создаёт уникальные индексы.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Storage{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
	}
	if err = s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// NewWithCollection оборачивает уже открытую коллекцию.
func NewWithCollection(coll *mongo.Collection) *Storage {
	return &Storage{client: coll.Database().Client(), users: coll}
}

// EnsureIndexes создаёт уникальные индексы по username и email.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	const op = "storage.mongodb.EnsureIndexes"

	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping проверяет, что основной узел доступен.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.mongodb.Ping"
	if err := s.users.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindByUsernameOrEmail ищет пользователя, у которого совпадает username или email.
// Пустые значения в фильтр не попадают.
func (s *Storage) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage.mongodb.FindByUsernameOrEmail"

	var or bson.A
	if username != "" {
		or = append(or, bson.D{{Key: "username", Value: username}})
	}
	if email != "" {
		or = append(or, bson.D{{Key: "email", Value: email}})
	}
	if len(or) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var doc userDocument
	err := s.users.FindOne(ctx, bson.D{{Key: "$or", Value: or}}).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return doc.toModel(), nil
}

// FindByID возвращает полную запись пользователя.
func (s *Storage) FindByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.mongodb.FindByID"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var doc userDocument
	if err = s.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return doc.toModel(), nil
}

// FindPublicByID возвращает пользователя без хэша пароля и refresh-токена.
func (s *Storage) FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error) {
	const op = "storage.mongodb.FindPublicByID"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var doc userDocument
	opts := options.FindOne().SetProjection(publicProjection)
	if err = s.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return doc.toModel().Public(), nil
}

// Create сохраняет нового пользователя и возвращает его id.
func (s *Storage) Create(ctx context.Context, u *models.User) (string, error) {
	const op = "storage.mongodb.Create"

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDocument{
		FullName:   u.FullName,
		Username:   u.Username,
		Email:      u.Email,
		Password:   u.PasswordHash,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("%s: unexpected inserted id type %T", op, res.InsertedID)
	}
	return oid.Hex(), nil
}

// SetRefreshToken перезаписывает только поле refreshToken, без валидации документа.
func (s *Storage) SetRefreshToken(ctx context.Context, id, token string) error {
	const op = "storage.mongodb.SetRefreshToken"
	return s.update(ctx, op, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "refreshToken", Value: token}}},
	})
}

// ClearRefreshToken удаляет поле refreshToken. Повторный вызов не ошибка.
func (s *Storage) ClearRefreshToken(ctx context.Context, id string) error {
	const op = "storage.mongodb.ClearRefreshToken"
	return s.update(ctx, op, id, bson.D{
		{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: ""}}},
	})
}

func (s *Storage) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const op = "storage.mongodb.UpdatePassword"
	return s.setFields(ctx, op, id, bson.E{Key: "password", Value: passwordHash})
}

// UpdateDetails меняет полное имя и email. Занятый email даёт storage.ErrUserExists.
func (s *Storage) UpdateDetails(ctx context.Context, id, fullName, email string) error {
	const op = "storage.mongodb.UpdateDetails"
	return s.setFields(ctx, op, id,
		bson.E{Key: "fullName", Value: fullName},
		bson.E{Key: "email", Value: email},
	)
}

func (s *Storage) UpdateAvatar(ctx context.Context, id, url string) error {
	const op = "storage.mongodb.UpdateAvatar"
	return s.setFields(ctx, op, id, bson.E{Key: "avatar", Value: url})
}

func (s *Storage) UpdateCoverImage(ctx context.Context, id, url string) error {
	const op = "storage.mongodb.UpdateCoverImage"
	return s.setFields(ctx, op, id, bson.E{Key: "coverImage", Value: url})
}

func (s *Storage) setFields(ctx context.Context, op, id string, fields ...bson.E) error {
	set := bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}
	set = append(set, fields...)
	return s.update(ctx, op, id, bson.D{{Key: "$set", Value: set}})
}

func (s *Storage) update(ctx context.Context, op, id string, update bson.D) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	opts := options.Update().SetBypassDocumentValidation(true)
	res, err := s.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrUserNotFound
	}
	return err
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		FullName:     d.FullName,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		Avatar:       d.Avatar,
		CoverImage:   d.CoverImage,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
