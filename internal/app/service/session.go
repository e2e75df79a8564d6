package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"mybucks/internal/app/port"
	"mybucks/internal/config"
	"mybucks/internal/domain/entity"
	"mybucks/internal/keyring"
)

// AccountFactory builds a chain account for a derived private key. Injected
// so tests can unlock sessions without touching real networks.
type AccountFactory func(privKey []byte, kind entity.NetworkKind, chainID uint64) (port.Account, error)

// SessionView is a read-only snapshot of the session for API responses.
type SessionView struct {
	Unlocked    bool                  `json:"unlocked"`
	Deriving    bool                  `json:"deriving"`
	Progress    float64               `json:"progress"`
	Address     string                `json:"address,omitempty"`
	NetworkKind entity.NetworkKind    `json:"networkKind,omitempty"`
	NetworkName string                `json:"networkName,omitempty"`
	Activated   bool                  `json:"activated"`
	Connected   bool                  `json:"connected"`
	Loading     bool                  `json:"loading"`
	Status      entity.NetworkStatus  `json:"status"`
	Balances    []entity.TokenBalance `json:"balances"`
	RefreshedAt time.Time             `json:"refreshedAt"`
}

// SessionService owns the single wallet session: credential unlock, the
// active chain account, the periodic refresh loop and idle teardown. All
// secret material lives here and nowhere else; Reset drops it.
type SessionService struct {
	cfg     *config.Config
	factory AccountFactory
	logger  port.Logger

	mu         sync.Mutex
	generation uint64
	account    port.Account
	password   string
	passcode   string
	privKey    []byte
	kind       entity.NetworkKind
	chainID    uint64

	deriving bool
	progress float64

	connected    bool
	loading      bool
	balances     []entity.TokenBalance
	refreshedAt  time.Time
	lastActivity time.Time

	refreshStop chan struct{}
	refreshDone chan struct{}
}

// NewSessionService creates a locked session.
func NewSessionService(cfg *config.Config, factory AccountFactory, logger port.Logger) *SessionService {
	return &SessionService{
		cfg:     cfg,
		factory: factory,
		logger:  logger,
	}
}

// Unlock derives the wallet key from the credentials and opens an account on
// the named network (the default EVM network when name is empty). Any
// previous session is torn down first. Derivation progress is readable via
// Snapshot while this call runs.
func (s *SessionService) Unlock(ctx context.Context, password, passcode, networkName string) error {
	if err := keyring.ValidateCredentials(password, passcode); err != nil {
		return err
	}

	kind := entity.NetworkEVM
	chainID := config.DefaultChainID
	if networkName != "" {
		resolvedKind, resolvedChainID, ok := s.cfg.FindNetworkByName(networkName)
		if !ok {
			return fmt.Errorf("unknown network %q", networkName)
		}
		kind, chainID = resolvedKind, resolvedChainID
	}

	s.Reset()

	s.mu.Lock()
	s.deriving = true
	s.progress = 0
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.deriving = false
		s.mu.Unlock()
	}()

	deriver := keyring.NewDeriver(password, passcode)
	go func() {
		for p := range deriver.Progress() {
			s.mu.Lock()
			s.progress = p
			s.mu.Unlock()
		}
	}()

	hash, err := deriver.Wait(ctx)
	if err != nil {
		return err
	}
	privKey, err := keyring.EvmPrivateKey(hash)
	if err != nil {
		return err
	}

	account, err := s.factory(privKey, kind, chainID)
	if err != nil {
		return fmt.Errorf("failed to open account: %w", err)
	}

	s.mu.Lock()
	s.password = password
	s.passcode = passcode
	s.privKey = privKey
	s.kind = kind
	s.chainID = chainID
	s.account = account
	s.generation++
	s.lastActivity = time.Now()
	s.refreshStop = make(chan struct{})
	s.refreshDone = make(chan struct{})
	stop, done := s.refreshStop, s.refreshDone
	s.mu.Unlock()

	s.logger.Info("Session unlocked", "network", networkName, "address", account.Address())
	go s.refreshLoop(stop, done)
	return nil
}

// UnlockWithLink decodes a wallet link and unlocks with its credentials.
// Decode failures surface as entity.ErrLinkMalformed so callers can fall back
// to manual entry. The link's network name is returned for the response.
func (s *SessionService) UnlockWithLink(ctx context.Context, token string) (string, error) {
	password, passcode, networkName, err := keyring.DecodeLink(token)
	if err != nil {
		return "", err
	}
	if err := keyring.ValidateCredentials(password, passcode); err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrLinkMalformed, err)
	}
	if err := s.Unlock(ctx, password, passcode, networkName); err != nil {
		if errors.Is(err, entity.ErrLinkMalformed) || strings.Contains(err.Error(), "unknown network") {
			return "", entity.ErrLinkMalformed
		}
		return "", err
	}
	return networkName, nil
}

// Reset tears the session down: the refresh loop is stopped synchronously,
// the account closed and all secret material dropped. Safe to call on a
// locked session.
func (s *SessionService) Reset() {
	s.mu.Lock()
	stop, done := s.refreshStop, s.refreshDone
	account := s.account
	s.refreshStop, s.refreshDone = nil, nil
	s.account = nil
	s.password, s.passcode = "", ""
	for i := range s.privKey {
		s.privKey[i] = 0
	}
	s.privKey = nil
	s.generation++
	s.connected = false
	s.loading = false
	s.balances = nil
	s.progress = 0
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if account != nil {
		account.Close()
		s.logger.Info("Session reset")
	}
}

// UpdateNetwork switches the session to another network, reusing the derived
// key. In-flight refreshes against the old account are discarded by the
// generation bump.
func (s *SessionService) UpdateNetwork(ctx context.Context, networkName string) error {
	kind, chainID, ok := s.cfg.FindNetworkByName(networkName)
	if !ok {
		return fmt.Errorf("unknown network %q", networkName)
	}

	s.mu.Lock()
	if s.account == nil {
		s.mu.Unlock()
		return entity.ErrNoSession
	}
	if s.kind == kind && s.chainID == chainID {
		s.mu.Unlock()
		return nil
	}
	privKey := s.privKey
	s.mu.Unlock()

	account, err := s.factory(privKey, kind, chainID)
	if err != nil {
		return fmt.Errorf("failed to open account: %w", err)
	}

	s.mu.Lock()
	old := s.account
	s.account = account
	s.kind = kind
	s.chainID = chainID
	s.generation++
	s.balances = nil
	s.loading = true
	s.lastActivity = time.Now()
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.logger.Info("Network switched", "network", networkName)
	return nil
}

// FetchBalances refreshes the balance snapshot immediately and returns it.
func (s *SessionService) FetchBalances(ctx context.Context) ([]entity.TokenBalance, error) {
	account, generation, err := s.current()
	if err != nil {
		return nil, err
	}

	s.setLoading(generation, true)
	balances, err := account.QueryBalances(ctx)
	s.applyBalances(generation, balances, err)
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// History returns recent transfers of the given token on the current network.
func (s *SessionService) History(ctx context.Context, tokenAddress string) ([]entity.TransferRecord, error) {
	account, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return account.QueryTokenHistory(ctx, tokenAddress, s.tokenDecimals(tokenAddress), s.cfg.Session.HistoryPageSize)
}

// PopulateTransfer validates and builds an unsigned transfer, rejecting
// amounts above the cached balance before any signing happens.
func (s *SessionService) PopulateTransfer(ctx context.Context, tokenAddress, to string, value *big.Int) (*entity.UnsignedTransfer, error) {
	account, _, err := s.current()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for _, row := range s.balances {
		if row.Address == tokenAddress && row.RawBalance != nil && value != nil && value.Cmp(row.RawBalance) > 0 {
			s.mu.Unlock()
			return nil, entity.ErrInsufficientBalance
		}
	}
	s.mu.Unlock()

	return account.PopulateTransfer(ctx, tokenAddress, to, value)
}

// EstimateFee predicts the cost of an unsigned transfer.
func (s *SessionService) EstimateFee(ctx context.Context, tx *entity.UnsignedTransfer, option entity.GasOption) (*entity.FeeEstimate, error) {
	account, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return account.EstimateFee(ctx, tx, option)
}

// Execute signs and broadcasts an unsigned transfer, then refreshes balances
// in the background.
func (s *SessionService) Execute(ctx context.Context, tx *entity.UnsignedTransfer, option entity.GasOption) (*entity.BroadcastResult, error) {
	account, generation, err := s.current()
	if err != nil {
		return nil, err
	}

	result, err := account.Execute(ctx, tx, option)
	if err != nil {
		return nil, err
	}

	go func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		balances, qerr := account.QueryBalances(refreshCtx)
		s.applyBalances(generation, balances, qerr)
	}()
	return result, nil
}

// Link encodes the session credentials and current network into a wallet
// link.
func (s *SessionService) Link() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return "", entity.ErrNoSession
	}
	name, ok := s.cfg.NetworkName(s.kind, s.chainID)
	if !ok {
		return "", fmt.Errorf("current network has no name")
	}
	return keyring.EncodeLink(s.password, s.passcode, name)
}

// LinkQRCode renders the wallet link as a PNG QR code.
func (s *SessionService) LinkQRCode(size int) ([]byte, error) {
	link, err := s.Link()
	if err != nil {
		return nil, err
	}
	return keyring.LinkQRCode(link, size)
}

// Snapshot returns the session state for API responses and marks the session
// active for idle accounting.
func (s *SessionService) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{
		Deriving:    s.deriving,
		Progress:    s.progress,
		Connected:   s.connected,
		Loading:     s.loading,
		Balances:    s.balances,
		RefreshedAt: s.refreshedAt,
	}
	if s.account != nil {
		view.Unlocked = true
		view.Address = s.account.Address()
		view.NetworkKind = s.kind
		view.Activated = s.account.Activated()
		view.Status = s.account.Status()
		if name, ok := s.cfg.NetworkName(s.kind, s.chainID); ok {
			view.NetworkName = name
		}
		s.lastActivity = time.Now()
	}
	return view
}

// Account exposes the active account for read-only use by the API layer.
func (s *SessionService) Account() (port.Account, error) {
	account, _, err := s.current()
	return account, err
}

// Generation returns the current session generation; results computed against
// an older generation must be discarded.
func (s *SessionService) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *SessionService) current() (port.Account, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return nil, 0, entity.ErrNoSession
	}
	s.lastActivity = time.Now()
	return s.account, s.generation, nil
}

func (s *SessionService) setLoading(generation uint64, loading bool) {
	s.mu.Lock()
	if s.generation == generation {
		s.loading = loading
	}
	s.mu.Unlock()
}

// applyBalances stores a refresh result unless the session moved on to a new
// generation while the query ran.
func (s *SessionService) applyBalances(generation uint64, balances []entity.TokenBalance, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return
	}
	s.loading = false
	if err != nil {
		s.connected = false
		return
	}
	s.connected = true
	s.balances = balances
	s.refreshedAt = time.Now()
}

// refreshLoop periodically refreshes network status and balances, and tears
// the session down after the idle timeout. It exits when stop closes. The
// account and generation are re-read every tick so the loop survives network
// switches; stale results are still discarded by applyBalances.
func (s *SessionService) refreshLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := time.Duration(s.cfg.Session.RefreshIntervalSeconds) * time.Second
	idleTimeout := time.Duration(s.cfg.Session.IdleTimeoutSeconds) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		account := s.account
		generation := s.generation
		idle := time.Since(s.lastActivity)
		s.mu.Unlock()
		if account == nil {
			return
		}

		if idle > idleTimeout {
			s.logger.Info("Session idle timeout reached, locking")
			go s.Reset()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		if err := account.GetNetworkStatus(ctx); err != nil {
			s.mu.Lock()
			if s.generation == generation {
				s.connected = false
			}
			s.mu.Unlock()
			cancel()
			continue
		}
		balances, err := account.QueryBalances(ctx)
		cancel()
		s.applyBalances(generation, balances, err)
	}
}

// tokenDecimals resolves the decimals of a token from the cached balance
// snapshot, falling back to the native decimals of the current network.
func (s *SessionService) tokenDecimals(tokenAddress string) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.balances {
		if row.Address == tokenAddress {
			return row.Decimals
		}
	}
	if s.kind == entity.NetworkEVM {
		if netDef, ok := s.cfg.FindEVMNetwork(s.chainID); ok {
			return netDef.Decimals
		}
	}
	return 6
}
