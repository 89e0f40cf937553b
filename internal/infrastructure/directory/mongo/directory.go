// Package mongo implements the identity directory port on MongoDB. It is the
// local development and test backend: the identity key doubles as the Mongo
// _id, so key uniqueness is enforced natively by the collection, while email
// carries no index at all — the same constraint asymmetry the production
// directory has.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/contaleve/identity-service/internal/core/domain"
)

const identityCollection = "identities"

type Directory struct {
	coll      *mongo.Collection
	jwtSecret string
	tokenTTL  time.Duration
}

func NewDirectory(db *mongo.Database, jwtSecret string, tokenTTL time.Duration) *Directory {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Directory{coll: db.Collection(identityCollection), jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

type identityDoc struct {
	Key            string `bson:"_id"`
	Name           string `bson:"name"`
	Email          string `bson:"email,omitempty"`
	Class          string `bson:"class"`
	CredentialHash string `bson:"credential_hash"`
	Permanent      bool   `bson:"credential_permanent"`
	CreatedAt      int64  `bson:"created_at"`
}

func (d *Directory) Exists(ctx context.Context, key string) (bool, error) {
	n, err := d.coll.CountDocuments(ctx, bson.M{"_id": key})
	if err != nil {
		return false, domain.WrapError(domain.KindDirectoryUnavailable, "identity directory unavailable", fmt.Errorf("count identity: %w", err))
	}
	return n > 0, nil
}

func (d *Directory) FindByKey(ctx context.Context, key string) (*domain.Identity, error) {
	var doc identityDoc
	if err := d.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.WrapError(domain.KindDirectoryUnavailable, "identity directory unavailable", fmt.Errorf("find identity: %w", err))
	}
	return docToIdentity(&doc), nil
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	var doc identityDoc
	if err := d.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.WrapError(domain.KindDirectoryUnavailable, "identity directory unavailable", fmt.Errorf("find identity by email: %w", err))
	}
	return docToIdentity(&doc), nil
}

func (d *Directory) Create(ctx context.Context, identity *domain.Identity, temporaryCredential string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(temporaryCredential), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash credential: %w", err)
	}

	doc := identityDoc{
		Key:            identity.Key,
		Name:           identity.DisplayName,
		Email:          identity.Email,
		Class:          string(identity.Class),
		CredentialHash: string(hash),
		Permanent:      false,
		CreatedAt:      time.Now().UTC().Unix(),
	}

	if _, err := d.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", domain.WrapError(domain.KindDuplicateIdentifier, "CPF already registered", err)
		}
		return "", domain.WrapError(domain.KindDirectoryUnavailable, "identity directory unavailable", fmt.Errorf("insert identity: %w", err))
	}
	return identity.Key, nil
}

func (d *Directory) FinalizeCredential(ctx context.Context, key, permanentCredential string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(permanentCredential), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}

	res, err := d.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"credential_hash": string(hash), "credential_permanent": true}},
	)
	if err != nil {
		return domain.WrapError(domain.KindDirectoryUnavailable, "identity directory unavailable", fmt.Errorf("finalize credential: %w", err))
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (d *Directory) Authenticate(ctx context.Context, key, credential string) (*domain.AuthTokens, error) {
	var doc identityDoc
	if err := d.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.WrapError(domain.KindDirectoryUnavailable, "identity directory unavailable", fmt.Errorf("find identity: %w", err))
	}

	if bcrypt.CompareHashAndPassword([]byte(doc.CredentialHash), []byte(credential)) != nil {
		return nil, domain.ErrUnauthorized
	}

	idToken, err := d.signToken(jwt.MapClaims{
		"sub":  doc.Key,
		"name": doc.Name,
		"type": doc.Class,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(d.tokenTTL).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("sign id token: %w", err)
	}

	refreshToken, err := d.signToken(jwt.MapClaims{
		"sub":       doc.Key,
		"token_use": "refresh",
		"iat":       time.Now().Unix(),
		"exp":       time.Now().Add(30 * 24 * time.Hour).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &domain.AuthTokens{IDToken: idToken, RefreshToken: refreshToken}, nil
}

func (d *Directory) signToken(claims jwt.MapClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(d.jwtSecret))
}

func docToIdentity(doc *identityDoc) *domain.Identity {
	return &domain.Identity{
		Key:         doc.Key,
		DisplayName: doc.Name,
		Email:       doc.Email,
		Class:       domain.IdentityClass(doc.Class),
	}
}
