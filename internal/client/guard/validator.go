package guard

import (
	"context"
	"net/http"
	"strings"

	"github.com/yndnr/regdesk-go/internal/client/transport"
	"github.com/yndnr/regdesk-go/internal/core/domain"
)

// DefaultValidatePath is the backend's session validation endpoint.
const DefaultValidatePath = "/auth/session/validate"

// statusSessionExpired is the non-standard "Page Expired" status some
// backends use for stale sessions.
const statusSessionExpired = 419

// HTTPValidator validates tokens through the backend's validation endpoint.
type HTTPValidator struct {
	client *transport.Client
	path   string
}

// NewHTTPValidator creates a validator that posts to DefaultValidatePath.
func NewHTTPValidator(client *transport.Client) *HTTPValidator {
	return &HTTPValidator{client: client, path: DefaultValidatePath}
}

// WithPath returns a copy of v that posts to path.
func (v *HTTPValidator) WithPath(path string) *HTTPValidator {
	cp := *v
	cp.path = path
	return &cp
}

type validateResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

// Validate posts token to the validation endpoint.
//
// 401, 403 and 419 are explicit rejections. An empty 2xx body counts as
// valid. Any other failure is returned as an error.
func (v *HTTPValidator) Validate(ctx context.Context, token string) (Verdict, error) {
	resp, err := v.client.Call(ctx, http.MethodPost, v.path, nil, transport.WithToken(token))
	if err != nil {
		switch transport.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden, statusSessionExpired:
			return Verdict{Status: StatusInvalid}, nil
		}
		return Verdict{}, err
	}

	var body validateResponse
	if err := resp.Decode(&body); err != nil {
		return Verdict{}, err
	}

	switch status := strings.ToLower(strings.TrimSpace(body.Status)); status {
	case "", string(StatusValid):
		if len(resp.Body) > 0 && status == "" {
			return Verdict{}, domain.ErrResponseMalformed.WithDetails("validation response has no status")
		}
		return Verdict{Status: StatusValid}, nil
	case string(StatusRefreshed), "valid-and-refreshed", "valid_refreshed":
		return Verdict{Status: StatusRefreshed, Token: body.Token}, nil
	case string(StatusInvalid), "expired":
		return Verdict{Status: StatusInvalid}, nil
	default:
		return Verdict{Status: Status(status)}, nil
	}
}
