package api

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ListResponse wraps a filtered content list
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// AccountResponse is an account without its secret
type AccountResponse struct {
	ID           string             `json:"id"`
	Type         models.AccountType `json:"type"`
	PlaylistName string             `json:"playlist_name"`
	ServerURL    string             `json:"server_url,omitempty"`
	Username     string             `json:"username,omitempty"`
	M3UURL       string             `json:"m3u_url,omitempty"`
	LastUsed     *time.Time         `json:"last_used,omitempty"`
	Current      bool               `json:"current"`
}

func newAccountResponse(a models.Account, currentID string) AccountResponse {
	resp := AccountResponse{
		ID:           a.ID,
		Type:         a.Type,
		PlaylistName: a.PlaylistName,
		LastUsed:     a.LastUsed,
		Current:      a.ID != "" && a.ID == currentID,
	}
	if a.Xtream != nil {
		resp.ServerURL = a.Xtream.ServerURL
		resp.Username = a.Xtream.Username
	}
	if a.M3U != nil {
		resp.M3UURL = a.M3U.URL
	}
	return resp
}

// AccountRequest describes an account to save or test
type AccountRequest struct {
	Type         models.AccountType `json:"type" binding:"required"`
	PlaylistName string             `json:"playlist_name"`
	ServerURL    string             `json:"server_url"`
	Username     string             `json:"username"`
	Password     string             `json:"password"`
	M3UURL       string             `json:"m3u_url"`

	// Verify rejects the account when the provider does not answer
	Verify bool `json:"verify"`
}

func (r AccountRequest) toAccount() (models.Account, error) {
	switch models.AccountType(strings.ToLower(string(r.Type))) {
	case models.AccountTypeXtream:
		return models.NewXtreamAccount("", r.PlaylistName, r.ServerURL, r.Username, r.Password), nil
	case models.AccountTypeM3U:
		return models.NewM3UAccount("", r.PlaylistName, r.M3UURL), nil
	default:
		return models.Account{}, apperrors.ValidationError("type must be one of: xtream, m3u")
	}
}

// SetCurrentRequest selects an account
type SetCurrentRequest struct {
	ID string `json:"id" binding:"required"`
}

// TestResponse reports a connection test
type TestResponse struct {
	OK bool `json:"ok"`
}

// HealthResponse reports store and upstream breaker health
type HealthResponse struct {
	Status   string            `json:"status"`
	Error    string            `json:"error,omitempty"`
	Breakers map[string]string `json:"breakers,omitempty"`
}

// statusFor maps an application error code onto an HTTP status
func statusFor(err error) int {
	if apperrors.IsValidationError(err) {
		return http.StatusBadRequest
	}

	switch apperrors.GetErrorCode(err) {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeServiceTimeout:
		return http.StatusGatewayTimeout
	case apperrors.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.CodeNetwork, apperrors.CodeUnauthorized, apperrors.CodeUpstreamStatus,
		apperrors.CodeParse, apperrors.CodeMalformedData:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
