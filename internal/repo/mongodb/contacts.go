package mongodb

import (
	"context"
	"time"

	"github.com/pitchndeck/api/internal/domain/contact"
	"github.com/pitchndeck/api/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const contactsCollection = "contacts"

type ContactsRepo struct {
	contacts *mongo.Collection
	prom     *observability.Prom
}

func NewContactsRepo(db *mongo.Database, prom *observability.Prom) *ContactsRepo {
	return &ContactsRepo{
		contacts: db.Collection(contactsCollection),
		prom:     prom,
	}
}

func (r *ContactsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

type contactDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Email       string             `bson:"email"`
	Phone       string             `bson:"phone,omitempty"`
	Company     string             `bson:"company,omitempty"`
	Subject     string             `bson:"subject"`
	Message     string             `bson:"message"`
	InquiryType string             `bson:"inquiryType"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d contactDoc) toDomain() contact.Contact {
	return contact.Contact{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Email:       d.Email,
		Phone:       d.Phone,
		Company:     d.Company,
		Subject:     d.Subject,
		Message:     d.Message,
		InquiryType: d.InquiryType,
		Status:      d.Status,
		Priority:    d.Priority,
		CreatedAt:   d.CreatedAt,
	}
}

// Create persists a contact submission with intake defaults applied.
func (r *ContactsRepo) Create(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	doc := contactDoc{
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		Company:     c.Company,
		Subject:     c.Subject,
		Message:     c.Message,
		InquiryType: c.InquiryType,
		Status:      contact.StatusNew,
		Priority:    contact.PriorityFor(c.InquiryType),
		CreatedAt:   time.Now().UTC(),
	}

	var res *mongo.InsertOneResult

	err := r.observe("contacts.create", func() error {
		var insertErr error
		res, insertErr = r.contacts.InsertOne(ctx, doc)
		return insertErr
	})

	if err != nil {
		return contact.Contact{}, err
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}

	return doc.toDomain(), nil
}

// List returns submissions newest first.
func (r *ContactsRepo) List(ctx context.Context) ([]contact.Contact, error) {
	var docs []contactDoc

	err := r.observe("contacts.list", func() error {
		cur, findErr := r.contacts.Find(ctx, bson.M{},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
		)

		if findErr != nil {
			return findErr
		}

		defer cur.Close(ctx)

		return cur.All(ctx, &docs)
	})

	if err != nil {
		return nil, err
	}

	out := make([]contact.Contact, 0, len(docs))

	for _, d := range docs {
		out = append(out, d.toDomain())
	}

	return out, nil
}
