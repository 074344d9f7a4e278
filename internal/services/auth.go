package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"
	"flickr-mirror/internal/repository"

	"github.com/rs/zerolog/log"
)

const pendingAuthTTL = 15 * time.Minute

// AuthStepKind tells the caller what to do after Begin
type AuthStepKind int

const (
	// AuthRedirect: send the user to RedirectURL to approve access
	AuthRedirect AuthStepKind = iota
	// AuthLinked: the stored token is valid
	AuthLinked
	// AuthRelink: the stored token was rejected and has been cleared
	AuthRelink
)

// AuthStep is the outcome of Begin
type AuthStep struct {
	Kind        AuthStepKind
	RedirectURL string
	Account     *models.RemoteAccount
}

// AuthService links local users to Flickr accounts through OAuth1
type AuthService struct {
	api      RemoteAPI
	oauth    OAuthFlow
	accounts AccountStore
	pending  PendingAuthStore
	perms    string
}

// NewAuthService creates a new auth service requesting perms ("read", "write" or "delete")
func NewAuthService(api RemoteAPI, oauth OAuthFlow, stores Stores, perms string) *AuthService {
	return &AuthService{
		api:      api,
		oauth:    oauth,
		accounts: stores.Accounts,
		pending:  stores.Pending,
		perms:    perms,
	}
}

// CredentialOf returns the stored access token of a linked account
func CredentialOf(account *models.RemoteAccount) (*flickr.Credential, error) {
	if account == nil || !account.Linked() {
		return nil, ErrNotLinked
	}
	cred := &flickr.Credential{Token: *account.Token}
	if account.TokenSecret != nil {
		cred.Secret = *account.TokenSecret
	}
	return cred, nil
}

// Begin starts or resumes authorization for a local user. An unlinked user
// gets a fresh request token and the URL to approve it; a linked user's token
// is probed and cleared when Flickr rejects it. The account row is only
// created once a handshake completes.
func (s *AuthService) Begin(ctx context.Context, userID, callbackURL string) (*AuthStep, error) {
	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if cred, err := CredentialOf(account); err == nil {
		if _, err := s.api.Raw(ctx, cred, "flickr.test.login", nil); err != nil {
			log.Warn().
				Err(err).
				Str("user_id", userID).
				Int64("account_id", account.ID).
				Msg("Stored token rejected, unlinking")
			if err := s.accounts.ClearCredential(ctx, account.ID); err != nil {
				return nil, err
			}
			return &AuthStep{Kind: AuthRelink}, nil
		}
		return &AuthStep{Kind: AuthLinked, Account: account}, nil
	}

	token, secret, err := s.oauth.RequestToken(callbackURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get request token: %w", err)
	}
	pending := models.PendingAuthorization{RequestToken: token, RequestSecret: secret, UserID: userID}
	if err := s.pending.Save(ctx, pending, pendingAuthTTL); err != nil {
		return nil, err
	}

	authURL, err := s.oauth.AuthorizationURL(token, s.perms)
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization url: %w", err)
	}
	return &AuthStep{Kind: AuthRedirect, RedirectURL: authURL}, nil
}

// Complete exchanges an approved request token for an access token and
// stores it on the user's account.
func (s *AuthService) Complete(ctx context.Context, userID, requestToken, verifier string) (*models.RemoteAccount, error) {
	pending, err := s.pending.Take(ctx, requestToken)
	if err != nil {
		return nil, fmt.Errorf("failed to find request token: %w", err)
	}
	if pending.UserID != userID {
		return nil, fmt.Errorf("request token was issued to another user")
	}

	cred, err := s.oauth.AccessToken(pending.RequestToken, pending.RequestSecret, verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	raw, err := s.api.Raw(ctx, cred, "flickr.auth.oauth.checkToken", map[string]string{"oauth_token": cred.Token})
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	var check flickr.CheckTokenResponse
	if err := json.Unmarshal(raw, &check); err != nil {
		return nil, fmt.Errorf("failed to decode token check: %w", err)
	}
	owner := check.OAuth.User

	account, err := s.accounts.GetOrCreateForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.SetCredential(ctx, account.ID, cred.Token, cred.Secret, check.OAuth.Perms.String()); err != nil {
		return nil, err
	}
	if account.NSID != owner.NSID.String() {
		err := s.accounts.UpdateFromRemote(ctx, account.ID, models.AccountFields{
			FlickrID: owner.NSID.String(),
			NSID:     owner.NSID.String(),
			Username: owner.Username.String(),
			Realname: owner.Fullname.String(),
		})
		if err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("user_id", userID).
		Str("nsid", owner.NSID.String()).
		Str("perms", check.OAuth.Perms.String()).
		Msg("Flickr account linked")

	return s.accounts.GetByID(ctx, account.ID)
}

// Credential returns the linked account of a user and its access token
func (s *AuthService) Credential(ctx context.Context, userID string) (*models.RemoteAccount, *flickr.Credential, error) {
	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotLinked
		}
		return nil, nil, err
	}
	cred, err := CredentialOf(account)
	if err != nil {
		return nil, nil, err
	}
	return account, cred, nil
}
