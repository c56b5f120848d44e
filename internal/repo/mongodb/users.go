package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/pitchndeck/api/internal/domain/user"
	"github.com/pitchndeck/api/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	metaCollection  = "meta"

	// Singleton document claimed by exactly one sign-up ever.
	firstAdminClaimID = "first-admin"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

type UsersRepo struct {
	users *mongo.Collection
	meta  *mongo.Collection
	prom  *observability.Prom
}

func NewUsersRepo(db *mongo.Database, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		users: db.Collection(usersCollection),
		meta:  db.Collection(metaCollection),
		prom:  prom,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

// userDoc is the wire shape of a user document; the repo maps it to the
// driver-free domain struct at the boundary.
type userDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	PasswordHash   string             `bson:"password"`
	Name           string             `bson:"name"`
	Phone          string             `bson:"phone,omitempty"`
	Company        string             `bson:"company,omitempty"`
	Role           string             `bson:"role"`
	IsActive       bool               `bson:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
	LastLogin      *time.Time         `bson:"lastLogin"`
	PortfolioValue float64            `bson:"portfolioValue"`
	TotalReturns   float64            `bson:"totalReturns"`
	SignupIP       string             `bson:"signupIP,omitempty"`
	LastLoginIP    string             `bson:"lastLoginIP,omitempty"`
	UserAgent      string             `bson:"userAgent,omitempty"`
}

func (d userDoc) toDomain() user.User {
	return user.User{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Name:           d.Name,
		Phone:          d.Phone,
		Company:        d.Company,
		Role:           d.Role,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		LastLogin:      d.LastLogin,
		PortfolioValue: d.PortfolioValue,
		TotalReturns:   d.TotalReturns,
		SignupIP:       d.SignupIP,
		LastLoginIP:    d.LastLoginIP,
		UserAgent:      d.UserAgent,
	}
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var doc userDoc

	err := r.observe("users.get_by_email", func() error {
		return r.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return doc.toDomain(), nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)

	if err != nil {
		// A token minted for a deleted or foreign id maps to "gone".
		return user.User{}, ErrUserNotFound
	}

	var doc userDoc

	err = r.observe("users.get_by_id", func() error {
		return r.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return doc.toDomain(), nil
}

// Create inserts a fresh account. The very first account ever claims the
// admin role through an atomic upsert on a singleton meta document, so two
// concurrent sign-ups against an empty store cannot both become admin.
func (r *UsersRepo) Create(ctx context.Context, req user.NewUserRequest) (user.User, error) {
	role := user.RoleClient

	claimed, err := r.claimFirstAdmin(ctx)

	if err != nil {
		return user.User{}, err
	}

	if claimed {
		role = user.RoleAdmin
	}

	now := time.Now().UTC()

	doc := userDoc{
		Email:          req.Email,
		PasswordHash:   req.PasswordHash,
		Name:           req.Name,
		Phone:          req.Phone,
		Company:        req.Company,
		Role:           role,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastLogin:      nil,
		PortfolioValue: 0,
		TotalReturns:   0,
		SignupIP:       req.SignupIP,
		UserAgent:      req.UserAgent,
	}

	var res *mongo.InsertOneResult

	err = r.observe("users.create", func() error {
		var insertErr error
		res, insertErr = r.users.InsertOne(ctx, doc)
		return insertErr
	})

	if err != nil {
		if claimed {
			// Hand the claim back so the next successful sign-up gets it.
			r.releaseFirstAdmin(ctx)
		}

		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)

	if ok {
		doc.ID = oid
	}

	return doc.toDomain(), nil
}

func (r *UsersRepo) claimFirstAdmin(ctx context.Context) (bool, error) {
	var claimed bool

	err := r.observe("users.claim_first_admin", func() error {
		claimErr := r.meta.FindOneAndUpdate(ctx,
			bson.M{"_id": firstAdminClaimID},
			bson.M{"$setOnInsert": bson.M{"claimedAt": time.Now().UTC()}},
			options.FindOneAndUpdate().
				SetUpsert(true).
				SetReturnDocument(options.Before),
		).Err()

		switch {
		case claimErr == nil:
			// The document already existed; someone else holds the claim.
			return nil
		case errors.Is(claimErr, mongo.ErrNoDocuments):
			// No prior document means this call performed the upsert and
			// owns the claim.
			claimed = true
			return nil
		case mongo.IsDuplicateKeyError(claimErr):
			// Two bootstrap upserts raced on the _id; the other call's
			// insert won, so this one simply lost the claim.
			return nil
		default:
			return claimErr
		}
	})

	if err != nil {
		return false, err
	}

	return claimed, nil
}

func (r *UsersRepo) releaseFirstAdmin(ctx context.Context) {
	_ = r.observe("users.release_first_admin", func() error {
		_, err := r.meta.DeleteOne(ctx, bson.M{"_id": firstAdminClaimID})
		return err
	})
}

// RecordLogin stamps a successful sign-in on the account.
func (r *UsersRepo) RecordLogin(ctx context.Context, id, ip string) error {
	oid, err := primitive.ObjectIDFromHex(id)

	if err != nil {
		return ErrUserNotFound
	}

	now := time.Now().UTC()

	return r.observe("users.record_login", func() error {
		_, err := r.users.UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{
				"lastLogin":   now,
				"updatedAt":   now,
				"lastLoginIP": ip,
			}},
		)
		return err
	})
}

// SetActive toggles the account's activity flag.
func (r *UsersRepo) SetActive(ctx context.Context, id string, active bool) error {
	oid, err := primitive.ObjectIDFromHex(id)

	if err != nil {
		return ErrUserNotFound
	}

	var res *mongo.UpdateResult

	err = r.observe("users.set_active", func() error {
		var updateErr error
		res, updateErr = r.users.UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{
				"isActive":  active,
				"updatedAt": time.Now().UTC(),
			}},
		)
		return updateErr
	})

	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

// List returns one page of users, newest first, plus the total count.
func (r *UsersRepo) List(ctx context.Context, page, limit int) ([]user.User, int64, error) {
	var total int64

	err := r.observe("users.count", func() error {
		var countErr error
		total, countErr = r.users.CountDocuments(ctx, bson.M{})
		return countErr
	})

	if err != nil {
		return nil, 0, err
	}

	skip := int64(page-1) * int64(limit)

	var docs []userDoc

	err = r.observe("users.list", func() error {
		cur, findErr := r.users.Find(ctx, bson.M{},
			options.Find().
				SetSort(bson.D{{Key: "createdAt", Value: -1}}).
				SetSkip(skip).
				SetLimit(int64(limit)),
		)

		if findErr != nil {
			return findErr
		}

		defer cur.Close(ctx)

		return cur.All(ctx, &docs)
	})

	if err != nil {
		return nil, 0, err
	}

	out := make([]user.User, 0, len(docs))

	for _, d := range docs {
		out = append(out, d.toDomain())
	}

	return out, total, nil
}

// Stats aggregates account counts by activity and role in a single pipeline.
func (r *UsersRepo) Stats(ctx context.Context) (user.Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"totalUsers":  bson.M{"$sum": 1},
			"activeUsers": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$isActive", true}}, 1, 0}}},
			"adminUsers":  bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$role", user.RoleAdmin}}, 1, 0}}},
			"clientUsers": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$role", user.RoleClient}}, 1, 0}}},
		}}},
	}

	var rows []struct {
		TotalUsers  int64 `bson:"totalUsers"`
		ActiveUsers int64 `bson:"activeUsers"`
		AdminUsers  int64 `bson:"adminUsers"`
		ClientUsers int64 `bson:"clientUsers"`
	}

	err := r.observe("users.stats", func() error {
		cur, aggErr := r.users.Aggregate(ctx, pipeline)

		if aggErr != nil {
			return aggErr
		}

		defer cur.Close(ctx)

		return cur.All(ctx, &rows)
	})

	if err != nil {
		return user.Stats{}, err
	}

	if len(rows) == 0 {
		// Empty store groups to nothing.
		return user.Stats{}, nil
	}

	return user.Stats{
		TotalUsers:  rows[0].TotalUsers,
		ActiveUsers: rows[0].ActiveUsers,
		AdminUsers:  rows[0].AdminUsers,
		ClientUsers: rows[0].ClientUsers,
	}, nil
}

// CountSignupsSince counts accounts created at or after the cutoff.
func (r *UsersRepo) CountSignupsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64

	err := r.observe("users.count_recent", func() error {
		var countErr error
		n, countErr = r.users.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": since}})
		return countErr
	})

	return n, err
}
