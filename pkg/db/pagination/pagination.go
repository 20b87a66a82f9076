package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidToken = errors.New("invalid page token")

// Pagination is the page_token / page_size query pair.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Size clamps PageSize to [1, max], using def when unset.
func (p Pagination) Size(def, max int) int {
	switch {
	case p.PageSize <= 0:
		return def
	case p.PageSize > max:
		return max
	default:
		return p.PageSize
	}
}

// Keyset is the last row of a page in (created_at desc, id desc) order.
type Keyset struct {
	CreatedAt time.Time `json:"t"`
	ID        int64     `json:"i"`
}

func (k Keyset) Encode() string {
	b, _ := json.Marshal(Keyset{CreatedAt: k.CreatedAt.UTC(), ID: k.ID})
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeKeyset(token string) (Keyset, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Keyset{}, ErrInvalidToken
	}
	var k Keyset
	if err := json.Unmarshal(b, &k); err != nil || k.ID <= 0 || k.CreatedAt.IsZero() {
		return Keyset{}, ErrInvalidToken
	}
	return k, nil
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// Trim cuts a limit+1 fetch down to limit rows. When the extra row was
// present the page points at the last kept row.
func Trim[T any](rows []T, limit int, key func(T) Keyset) ([]T, PageInfo) {
	if limit <= 0 || len(rows) <= limit {
		return rows, PageInfo{}
	}
	rows = rows[:limit]
	return rows, PageInfo{
		HasMore:       true,
		NextPageToken: key(rows[len(rows)-1]).Encode(),
	}
}
