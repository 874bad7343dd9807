package twin

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RegistrationReward is credited to every new account.
const RegistrationReward = 100

// MemoryStore holds all twin state in memory.
type MemoryStore struct {
	Users    *Table[User]
	Assets   *Table[Asset]
	Holdings *Table[Holding]
	Listings *Table[Listing]
	Events   *Table[Event]
	Airdrops *Table[Airdrop]
	Points   *Table[PointRecord]

	// regMu serializes the phone lookup and insert in RegisterOrGet.
	regMu sync.Mutex
	now   func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Users:    NewTable[User](10000),
		Assets:   NewTable[Asset](0),
		Holdings: NewTable[Holding](0),
		Listings: NewTable[Listing](0),
		Events:   NewTable[Event](0),
		Airdrops: NewTable[Airdrop](0),
		Points:   NewTable[PointRecord](0),
		now:      time.Now,
	}
}

// Reset empties every table, then reseeds the catalogue when seed is set.
func (s *MemoryStore) Reset(seed bool) {
	s.Users.Reset()
	s.Assets.Reset()
	s.Holdings.Reset()
	s.Listings.Reset()
	s.Events.Reset()
	s.Airdrops.Reset()
	s.Points.Reset()
	if seed {
		s.Seed()
	}
}

// Snapshot returns every table's rows for inspection.
func (s *MemoryStore) Snapshot() map[string]any {
	return map[string]any{
		"users":    s.Users.List(),
		"assets":   s.Assets.List(),
		"holdings": s.Holdings.List(),
		"listings": s.Listings.List(),
		"events":   s.Events.List(),
		"airdrops": s.Airdrops.List(),
		"points":   s.Points.List(),
	}
}

// Seed fills the catalogue with a small fixed data set.
func (s *MemoryStore) Seed() {
	now := s.now()
	dragon := s.Assets.Insert(func(id int64) Asset {
		return Asset{ID: id, Name: "Jade Dragon", Description: "Park mascot, first edition", TotalSupply: 1000, MintedCount: 128, PricePoints: 500}
	})
	lantern := s.Assets.Insert(func(id int64) Asset {
		return Asset{ID: id, Name: "Lantern Night", Description: "Festival commemorative", TotalSupply: 500, MintedCount: 500, PricePoints: 300}
	})
	s.Assets.Insert(func(id int64) Asset {
		return Asset{ID: id, Name: "Lotus Pond", Description: "Garden series", TotalSupply: 2000, MintedCount: 0, PricePoints: 200}
	})

	s.Listings.Insert(func(id int64) Listing {
		return Listing{ID: id, AssetID: dragon.ID, SellerID: 1, Price: 800, Status: "on_sale"}
	})
	s.Listings.Insert(func(id int64) Listing {
		return Listing{ID: id, AssetID: lantern.ID, SellerID: 2, Price: 450, Status: "on_sale"}
	})

	s.Events.Insert(func(id int64) Event {
		return Event{ID: id, Title: "Spring collectors meetup", Location: "HOHO Park east gate", StartsAt: now.Add(72 * time.Hour)}
	})
	s.Events.Insert(func(id int64) Event {
		return Event{ID: id, Title: "Lantern night parade", Location: "Central lake", StartsAt: now.Add(240 * time.Hour)}
	})

	s.Airdrops.Insert(func(id int64) Airdrop {
		return Airdrop{ID: id, AssetID: lantern.ID, Title: "Lantern launch giveaway", Status: "ended"}
	})
}

// RegisterOrGet returns the user already holding phone, or registers a new
// one. created reports which happened. Concurrent calls for one phone create
// a single user.
func (s *MemoryStore) RegisterOrGet(phone, password string) (u User, created bool) {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	if u, ok := s.UserByPhone(phone); ok {
		return u, false
	}
	return s.Register(phone, password), true
}

// Register creates a user and credits the registration reward.
func (s *MemoryStore) Register(phone, password string) User {
	now := s.now()
	u := s.Users.Insert(func(id int64) User {
		return User{
			ID:        id,
			UID:       strings.ToUpper(uuid.NewString()[:8]),
			Phone:     phone,
			Points:    RegistrationReward,
			CreatedAt: now,
			password:  password,
		}
	})
	s.Points.Insert(func(id int64) PointRecord {
		return PointRecord{ID: id, UserID: u.ID, Amount: RegistrationReward, Reason: "registration reward", CreatedAt: now}
	})
	return u
}

// UserByPhone looks up a user by phone number.
func (s *MemoryStore) UserByPhone(phone string) (User, bool) {
	return s.Users.Find(func(u User) bool { return u.Phone == phone })
}
