package models

import "time"

// AccountRecord is the persisted form of an Account
type AccountRecord struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Type         string     `gorm:"type:varchar(16);not null;index:idx_accounts_type" json:"type"`
	PlaylistName string     `gorm:"type:varchar(255);not null" json:"playlist_name"`
	ServerURL    *string    `gorm:"type:text" json:"server_url,omitempty"`
	Username     *string    `gorm:"type:varchar(255)" json:"username,omitempty"`
	Password     *string    `gorm:"type:varchar(255)" json:"-"`
	M3UURL       *string    `gorm:"column:m3u_url;type:text" json:"m3u_url,omitempty"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for AccountRecord
func (AccountRecord) TableName() string {
	return "accounts"
}

// Setting is a key/value row for store-wide state such as the current account
type Setting struct {
	Name      string    `gorm:"primaryKey;type:varchar(64)" json:"name"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for Setting
func (Setting) TableName() string {
	return "settings"
}

// ToAccount converts a record back into the tagged union
func (r AccountRecord) ToAccount() Account {
	acct := Account{
		ID:           r.ID,
		Type:         AccountType(r.Type),
		PlaylistName: r.PlaylistName,
		LastUsed:     r.LastUsed,
	}
	switch acct.Type {
	case AccountTypeXtream:
		acct.Xtream = &XtreamCredentials{
			ServerURL: deref(r.ServerURL),
			Username:  deref(r.Username),
			Password:  deref(r.Password),
		}
	case AccountTypeM3U:
		acct.M3U = &M3UPlaylist{URL: deref(r.M3UURL)}
	}
	return acct
}

// NewAccountRecord flattens an account for storage
func NewAccountRecord(a Account) AccountRecord {
	rec := AccountRecord{
		ID:           a.ID,
		Type:         string(a.Type),
		PlaylistName: a.PlaylistName,
		LastUsed:     a.LastUsed,
	}
	if a.Xtream != nil {
		rec.ServerURL = Ptr(a.Xtream.ServerURL)
		rec.Username = Ptr(a.Xtream.Username)
		rec.Password = Ptr(a.Xtream.Password)
	}
	if a.M3U != nil {
		rec.M3UURL = Ptr(a.M3U.URL)
	}
	return rec
}
