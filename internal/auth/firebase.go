package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseIdentity is the subset of a verified Firebase ID token we use.
type FirebaseIdentity struct {
	UID   string
	Email string
	Name  string
	Phone string
}

// FirebaseVerifier checks Firebase ID tokens with the admin SDK.
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

// NewFirebaseVerifier initialises the admin SDK from a service account JSON
// document.
func NewFirebaseVerifier(ctx context.Context, serviceAccountJSON string) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (FirebaseIdentity, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return FirebaseIdentity{}, ErrInvalidToken
	}
	id := FirebaseIdentity{UID: tok.UID}
	id.Email, _ = tok.Claims["email"].(string)
	id.Name, _ = tok.Claims["name"].(string)
	id.Phone, _ = tok.Claims["phone_number"].(string)
	return id, nil
}
