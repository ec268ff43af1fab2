package models

import (
	"fmt"
	"strings"
	"time"
)

// AccountType discriminates the two kinds of content provider accounts
type AccountType string

const (
	AccountTypeXtream AccountType = "xtream"
	AccountTypeM3U    AccountType = "m3u"
)

// XtreamCredentials holds the Xtream Codes variant of an account
type XtreamCredentials struct {
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// M3UPlaylist holds the M3U variant of an account
type M3UPlaylist struct {
	URL string `json:"m3u_url"`
}

// Account is a tagged union over the provider variants.
// Exactly one of Xtream or M3U is set, matching Type.
type Account struct {
	ID           string             `json:"id"`
	Type         AccountType        `json:"type"`
	PlaylistName string             `json:"playlist_name"`
	LastUsed     *time.Time         `json:"last_used,omitempty"`
	Xtream       *XtreamCredentials `json:"xtream,omitempty"`
	M3U          *M3UPlaylist       `json:"m3u,omitempty"`
}

// NewXtreamAccount builds an Xtream account
func NewXtreamAccount(id, playlistName, serverURL, username, password string) Account {
	return Account{
		ID:           id,
		Type:         AccountTypeXtream,
		PlaylistName: playlistName,
		Xtream: &XtreamCredentials{
			ServerURL: serverURL,
			Username:  username,
			Password:  password,
		},
	}
}

// NewM3UAccount builds an M3U account
func NewM3UAccount(id, playlistName, m3uURL string) Account {
	return Account{
		ID:           id,
		Type:         AccountTypeM3U,
		PlaylistName: playlistName,
		M3U:          &M3UPlaylist{URL: m3uURL},
	}
}

// Validate checks the tagged union invariant
func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("account id is required")
	}

	switch a.Type {
	case AccountTypeXtream:
		if a.Xtream == nil || a.M3U != nil {
			return fmt.Errorf("account %s: xtream account must carry only xtream credentials", a.ID)
		}
		if a.Xtream.ServerURL == "" || a.Xtream.Username == "" {
			return fmt.Errorf("account %s: server url and username are required", a.ID)
		}
	case AccountTypeM3U:
		if a.M3U == nil || a.Xtream != nil {
			return fmt.Errorf("account %s: m3u account must carry only a playlist", a.ID)
		}
		if a.M3U.URL == "" {
			return fmt.Errorf("account %s: m3u url is required", a.ID)
		}
	default:
		return fmt.Errorf("account %s: unknown account type %q", a.ID, a.Type)
	}

	return nil
}

// SameSource reports whether two accounts point at the same upstream.
// Xtream accounts match on server and username, M3U accounts on playlist URL.
func (a Account) SameSource(other Account) bool {
	if a.Type != other.Type {
		return false
	}
	switch a.Type {
	case AccountTypeXtream:
		return a.Xtream != nil && other.Xtream != nil &&
			a.Xtream.ServerURL == other.Xtream.ServerURL &&
			a.Xtream.Username == other.Xtream.Username
	case AccountTypeM3U:
		return a.M3U != nil && other.M3U != nil && a.M3U.URL == other.M3U.URL
	}
	return false
}
