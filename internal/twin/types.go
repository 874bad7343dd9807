package twin

import "time"

// User is a mini-program account.
type User struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	Phone     string    `json:"phone"`
	Nickname  string    `json:"nickname"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`

	password string
}

// Asset is a digital collectible series.
type Asset struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TotalSupply int64  `json:"total_supply"`
	MintedCount int64  `json:"minted_count"`
	PricePoints int64  `json:"price_points"`
}

// Holding records one asset owned by a user.
type Holding struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	AssetID  int64     `json:"asset_id"`
	Name     string    `json:"name"`
	Source   string    `json:"source"`
	Acquired time.Time `json:"acquired_at"`
}

// Listing is an asset offered on the exchange market.
type Listing struct {
	ID       int64  `json:"id"`
	AssetID  int64  `json:"asset_id"`
	SellerID int64  `json:"seller_id"`
	Price    int64  `json:"price"`
	Status   string `json:"status"`
}

// Event is a community event.
type Event struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at"`
}

// Airdrop is an asset giveaway campaign.
type Airdrop struct {
	ID      int64  `json:"id"`
	AssetID int64  `json:"asset_id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
}

// PointRecord is one entry in a user's point ledger.
type PointRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// listPage is the list envelope every collection endpoint returns.
type listPage[T any] struct {
	List  []T `json:"list"`
	Total int `json:"total"`
}

func page[T any](rows []T) listPage[T] {
	if rows == nil {
		rows = []T{}
	}
	return listPage[T]{List: rows, Total: len(rows)}
}
