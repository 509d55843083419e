package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/regdesk-go/internal/client/guard"
	"github.com/yndnr/regdesk-go/internal/client/sessionstore"
	"github.com/yndnr/regdesk-go/internal/client/transport"
	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
)

// Backend endpoints.
const (
	PathLogin  = "/auth/login"
	PathLogout = "/auth/logout"
	PathMe     = "/auth/me"
	PathExists = "/students/exists"
)

// API is the portal client.
type API struct {
	client *transport.Client
	store  sessionstore.Store
	guard  *guard.Guard
	logger logger.Logger
	now    func() time.Time
}

// New creates an API. g gates Me and Do.
func New(client *transport.Client, store sessionstore.Store, g *guard.Guard, log logger.Logger) *API {
	if log == nil {
		log = logger.Default()
	}
	return &API{
		client: client,
		store:  store,
		guard:  g,
		logger: log,
		now:    time.Now,
	}
}

// Guard returns the session guard.
func (a *API) Guard() *guard.Guard {
	return a.guard
}

type loginRequest struct {
	IDNumber string `json:"id_number"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  *userDTO `json:"user"`
}

// userDTO accepts numeric or string ids.
type userDTO struct {
	ID       flexString `json:"id"`
	Role     string     `json:"role"`
	IDNumber flexString `json:"id_number"`
}

func (u *userDTO) subject() domain.Subject {
	if u == nil {
		return domain.Subject{}
	}
	return domain.Subject{ID: string(u.ID), Role: u.Role, IDNumber: string(u.IDNumber)}
}

// flexString decodes a JSON string or number into a string.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Login exchanges credentials for a session and seeds the store.
func (a *API) Login(ctx context.Context, idNumber, password string) (domain.Session, error) {
	idNumber = domain.NormalizeIDNumber(idNumber)
	if idNumber == "" || password == "" {
		return domain.Session{}, domain.ErrInvalidArgument.WithDetails("id number and password are required")
	}

	resp, err := a.client.Post(ctx, PathLogin, loginRequest{IDNumber: idNumber, Password: password}, transport.WithoutToken())
	if err != nil {
		if he, ok := transport.AsHTTPError(err); ok && he.StatusCode >= 400 && he.StatusCode < 500 {
			return domain.Session{}, domain.ErrLoginFailed.WithDetails(he.Message).WithCause(err)
		}
		return domain.Session{}, err
	}

	var body loginResponse
	if err := resp.Decode(&body); err != nil {
		return domain.Session{}, err
	}
	if body.Token == "" {
		return domain.Session{}, domain.ErrResponseMalformed.WithDetails("login response has no token")
	}

	session := domain.Session{
		Token:     body.Token,
		Subject:   body.User.subject(),
		UpdatedAt: a.now(),
	}

	if err := a.store.SetToken(ctx, session.Token); err != nil {
		return domain.Session{}, err
	}
	if !session.Subject.IsZero() {
		if err := a.store.SetSubject(ctx, session.Subject); err != nil {
			return domain.Session{}, err
		}
	}

	a.logger.Info("logged in", "id_number", session.Subject.IDNumber, "role", session.Subject.Role)
	return session, nil
}

// Logout tells the backend the session is over and clears the store.
// The backend call is best effort; the store is cleared either way.
func (a *API) Logout(ctx context.Context) error {
	has, err := a.store.HasToken(ctx)
	if err != nil {
		a.logger.Debug("could not read stored session, skipping backend logout", "error", err)
	}
	if has {
		if _, err := a.client.Post(ctx, PathLogout, nil); err != nil {
			a.logger.Debug("logout request failed, clearing local session anyway", "error", err)
		}
	}
	if err := a.store.ClearToken(ctx); err != nil {
		return err
	}
	a.logger.Info("logged out")
	return nil
}

// Session returns the stored session without contacting the backend.
func (a *API) Session(ctx context.Context) (domain.Session, error) {
	token, err := a.store.GetToken(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	subject, err := a.store.GetSubject(ctx)
	if err != nil && !errors.Is(err, domain.ErrSubjectAbsent) {
		return domain.Session{}, err
	}
	return domain.Session{Token: token, Subject: subject}, nil
}

type existsResponse struct {
	Exists *bool `json:"exists"`
}

// CheckIDNumber reports whether a student with idNumber is registered.
func (a *API) CheckIDNumber(ctx context.Context, idNumber string) (bool, error) {
	q := url.Values{"id_number": {domain.NormalizeIDNumber(idNumber)}}
	return a.exists(ctx, q)
}

// CheckName reports whether a student with the same full name is registered.
func (a *API) CheckName(ctx context.Context, name domain.NameParts) (bool, error) {
	name = name.Normalize()
	q := url.Values{
		"first_name":  {name.First},
		"middle_name": {name.Middle},
		"last_name":   {name.Last},
	}
	return a.exists(ctx, q)
}

func (a *API) exists(ctx context.Context, q url.Values) (bool, error) {
	resp, err := a.client.Get(ctx, PathExists, transport.WithQuery(q))
	if err != nil {
		return false, err
	}
	var body existsResponse
	if err := resp.Decode(&body); err != nil {
		return false, err
	}
	if body.Exists == nil {
		return false, domain.ErrResponseMalformed.WithDetails("exists response has no exists field")
	}
	return *body.Exists, nil
}

type meResponse struct {
	User *userDTO `json:"user"`
	userDTO
}

// Me returns the authenticated subject and refreshes the stored copy.
func (a *API) Me(ctx context.Context) (domain.Subject, error) {
	resp, err := a.Do(ctx, http.MethodGet, PathMe, nil)
	if err != nil {
		return domain.Subject{}, err
	}

	var body meResponse
	if err := resp.Decode(&body); err != nil {
		return domain.Subject{}, err
	}
	subject := body.userDTO.subject()
	if body.User != nil {
		subject = body.User.subject()
	}
	if subject.IsZero() {
		return domain.Subject{}, domain.ErrResponseMalformed.WithDetails("me response has no user")
	}

	if err := a.store.SetSubject(ctx, subject); err != nil {
		a.logger.Warn("failed to store subject", "error", err)
	}
	return subject, nil
}

// Do validates the session, then issues the call. Nothing is sent when
// the guard refuses.
func (a *API) Do(ctx context.Context, method, path string, body any, opts ...transport.CallOption) (*transport.Response, error) {
	if err := a.guard.EnsureValidSession(ctx); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	switch method = strings.ToUpper(method); method {
	case http.MethodGet:
		return a.client.Get(ctx, path, opts...)
	case http.MethodPost:
		return a.client.Post(ctx, path, body, opts...)
	case http.MethodPut:
		return a.client.Put(ctx, path, body, opts...)
	case http.MethodDelete:
		return a.client.Delete(ctx, path, opts...)
	default:
		return a.client.Call(ctx, method, path, body, opts...)
	}
}
