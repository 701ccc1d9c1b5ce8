package sso

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 10 * time.Minute

// User is the identity handed to Metabase through JWT SSO.
type User struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	AccountID   int    `json:"accountId"`
	AccountName string `json:"accountName"`
}

// Username is the local part of the email.
func (u User) Username() string {
	name, _, _ := strings.Cut(u.Email, "@")
	return name
}

// UserClaims is the payload Metabase expects on /auth/sso?jwt=.
type UserClaims struct {
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	AccountID int      `json:"account_id"`
	Groups    []string `json:"groups"`
	jwt.RegisteredClaims
}

// MXClaims is the payload picked up by the MinusX extension through the mx_jwt cookie.
type MXClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Signer struct {
	userSecret []byte
	mxSecret   []byte
	ttl        time.Duration
	now        func() time.Time
	embedQuery string
}

type Option func(*Signer)

func WithTTL(ttl time.Duration) Option {
	return func(s *Signer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// WithEmbedQuery sets the query appended to return_to that hides Metabase chrome.
func WithEmbedQuery(q string) Option {
	return func(s *Signer) {
		s.embedQuery = q
	}
}

// NewSigner needs both shared secrets, tokens signed with an empty key
// would be accepted by nobody.
func NewSigner(userSecret, mxSecret string, opts ...Option) (*Signer, error) {
	var errs []error
	if userSecret == "" {
		errs = append(errs, errors.New("metabase jwt secret is not set"))
	}
	if mxSecret == "" {
		errs = append(errs, errors.New("mx jwt secret is not set"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s := &Signer{
		userSecret: []byte(userSecret),
		mxSecret:   []byte(mxSecret),
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Signer) expiry() *jwt.NumericDate {
	return jwt.NewNumericDate(s.now().Add(s.ttl).Round(time.Second))
}

func (s *Signer) SignUserToken(u User) (string, error) {
	claims := UserClaims{
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AccountID: u.AccountID,
		Groups:    []string{u.AccountName},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: s.expiry(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.userSecret)
}

func (s *Signer) SignMXToken(username string) (string, error) {
	claims := MXClaims{
		Email: username + "@domain.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: s.expiry(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.mxSecret)
}

// RedirectURL builds <base>/auth/sso with both tokens and the page Metabase
// should land on. An empty returnTo lands on "/".
func (s *Signer) RedirectURL(base string, u User, returnTo string) (string, error) {
	target, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	target = target.JoinPath("/auth/sso")

	userToken, err := s.SignUserToken(u)
	if err != nil {
		return "", err
	}
	mxToken, err := s.SignMXToken(u.Username())
	if err != nil {
		return "", err
	}

	if returnTo == "" {
		returnTo = "/"
	}
	if s.embedQuery != "" {
		returnTo += "?" + s.embedQuery
	}

	q := url.Values{}
	q.Set("jwt", userToken)
	q.Set("mx_jwt", mxToken)
	q.Set("return_to", returnTo)
	target.RawQuery = q.Encode()
	return target.String(), nil
}
