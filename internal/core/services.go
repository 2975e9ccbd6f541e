package core

import (
	"github.com/jellydator/ttlcache/v3"

	"github.com/viewstodownloads/tiktok-connect/internal/model"
)

type Services struct {
	Accounts    *AccountService
	Tokens      *TokenService
	Connect     *ConnectService
	Publish     *PublishService
	Status      *StatusService
	CreatorInfo *CreatorInfoService
	Session     *SessionService
	Jobs        *JobStore
}

// Deps are the collaborators NewServices wires together.
type Deps struct {
	DB            DB
	Provider      Provider
	TokenKey      []byte
	SessionSecret string
	SessionIssuer string
	ConsumedState *ttlcache.Cache[string, struct{}]
	CreatorCache  *ttlcache.Cache[string, *model.CreatorInfo]
}

// NewServices builds every service. The watcher is attached afterwards with
// SetWatcher since the in-process watcher needs the status service.
func NewServices(d Deps) *Services {
	accounts := NewAccountService(d.DB, d.TokenKey)
	tokens := NewTokenService(accounts, d.Provider)
	jobs := NewJobStore(d.DB)
	creators := NewCreatorInfoService(accounts, tokens, d.Provider, d.CreatorCache)

	return &Services{
		Accounts:    accounts,
		Tokens:      tokens,
		Connect:     NewConnectService(d.Provider, accounts, d.ConsumedState),
		Publish:     NewPublishService(accounts, tokens, creators, d.Provider, jobs, nil),
		Status:      NewStatusService(accounts, tokens, d.Provider, jobs),
		CreatorInfo: creators,
		Session:     NewSessionService(d.SessionSecret, d.SessionIssuer),
		Jobs:        jobs,
	}
}

func (s *Services) SetWatcher(w Watcher) {
	s.Publish.watcher = w
}
