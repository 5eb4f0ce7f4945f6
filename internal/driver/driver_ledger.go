package driver

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	drivererrors "go-fleet/internal/driver/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const BalanceKeyPrefix = "drivers:balance:"

const defaultBalanceTTL = 10 * time.Minute

func GetBalanceKey(code string) string {
	return BalanceKeyPrefix + code
}

// Ledger owns every driver's allowance and used-days counter.
//
// Used days can only change through an Account, and an Account can only be
// obtained with Lock, which takes the driver row lock inside the caller's
// transaction. The leave approval flow is the one caller of Lock.
//
//go:generate mockgen -source=driver_ledger.go -destination=mock/driver_ledger_mock.go -package=mock
type Ledger interface {
	Resolve(ctx context.Context, code string) (*Driver, error)
	GetBalance(ctx context.Context, code string) (BalanceResponse, error)
	Lock(ctx context.Context, tx *sql.Tx, driverID string) (Account, error)
	RefreshBalance(ctx context.Context, d Driver)
}

// Account is a driver row locked for the lifetime of a transaction.
type Account interface {
	Driver() Driver
	AdjustUsed(ctx context.Context, delta int) (int, error)
}

// cachedBalance carries the row version the balance was read at so a slow
// reader cannot overwrite a newer balance written after commit.
type cachedBalance struct {
	BalanceResponse
	Version int `json:"version"`
}

// setIfNewerScript stores ARGV[1] unless the cached entry already holds a
// version >= ARGV[2].
const setIfNewerScript = `
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, decoded = pcall(cjson.decode, cur)
	if ok and decoded.version and tonumber(decoded.version) >= tonumber(ARGV[2]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`

type ledger struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	ttl    time.Duration
	logger *zap.Logger
}

func NewLedger(repo Repository, rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) Ledger {
	l := zap.L().Named("driver.ledger")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("driver.ledger")
	}
	if ttl <= 0 {
		ttl = defaultBalanceTTL
	}
	return &ledger{
		repo:   repo,
		rdb:    rdb,
		sf:     &singleflight.Group{},
		ttl:    ttl,
		logger: l,
	}
}

func (l *ledger) Resolve(ctx context.Context, code string) (*Driver, error) {
	d, err := l.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return d, nil
}

func (l *ledger) GetBalance(ctx context.Context, code string) (BalanceResponse, error) {
	cacheKey := GetBalanceKey(code)

	if l.rdb != nil {
		if cached, err := l.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var entry cachedBalance
			if json.Unmarshal([]byte(cached), &entry) == nil {
				return entry.BalanceResponse, nil
			}
		}
	}

	v, err, _ := l.sf.Do(cacheKey, func() (any, error) {
		d, err := l.repo.FindByCode(ctx, code)
		if err != nil {
			return nil, mapRepositoryError(err)
		}
		if err := l.storeBalance(ctx, *d); err != nil {
			l.logger.Warn("cache driver balance failed", zap.String("key", cacheKey), zap.Error(err))
		}
		return toBalance(*d), nil
	})
	if err != nil {
		return BalanceResponse{}, err
	}
	return v.(BalanceResponse), nil
}

func (l *ledger) Lock(ctx context.Context, tx *sql.Tx, driverID string) (Account, error) {
	repo := l.repo.WithTx(tx)
	d, err := repo.LockByID(ctx, driverID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &account{repo: repo, driver: d, logger: l.logger}, nil
}

// RefreshBalance writes the committed balance of d to the cache. If the
// write fails the entry is dropped so the next read goes to the database.
func (l *ledger) RefreshBalance(ctx context.Context, d Driver) {
	if l.rdb == nil {
		return
	}
	cacheKey := GetBalanceKey(d.ExternalCode)
	err := l.storeBalance(ctx, d)
	if err == nil {
		return
	}
	l.logger.Warn("refresh driver balance cache failed, dropping entry",
		zap.String("key", cacheKey),
		zap.Error(err),
	)
	if err := l.rdb.Del(ctx, cacheKey).Err(); err != nil {
		l.logger.Error("failed to invalidate driver balance cache",
			zap.String("key", cacheKey),
			zap.Error(err),
		)
	}
}

func (l *ledger) storeBalance(ctx context.Context, d Driver) error {
	if l.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(cachedBalance{BalanceResponse: toBalance(d), Version: d.Version})
	if err != nil {
		return err
	}
	return l.rdb.Eval(ctx, setIfNewerScript, []string{GetBalanceKey(d.ExternalCode)},
		string(payload), d.Version, l.ttl.Milliseconds(),
	).Err()
}

type account struct {
	repo   Repository
	driver *Driver
	logger *zap.Logger
}

func (a *account) Driver() Driver {
	return *a.driver
}

// AdjustUsed applies delta to used days. A positive delta that would exceed
// the allowance fails with ErrInsufficientBalance. A negative delta that
// would go below zero is clamped to zero and logged as a data integrity
// warning.
func (a *account) AdjustUsed(ctx context.Context, delta int) (int, error) {
	d := a.driver
	newUsed := d.UsedDays + delta

	if delta > 0 && newUsed > d.AnnualAllowanceDays {
		remaining := d.Remaining()
		return d.UsedDays, drivererrors.ErrInsufficientBalance.WithDetails(map[string]any{
			"driver_code": d.ExternalCode,
			"remaining":   remaining,
			"requested":   delta,
			"shortfall":   delta - remaining,
		})
	}
	if newUsed < 0 {
		a.logger.Warn("used days reversal below zero, clamping",
			zap.String("driver_code", d.ExternalCode),
			zap.Int("used_days", d.UsedDays),
			zap.Int("delta", delta),
		)
		newUsed = 0
	}
	if newUsed == d.UsedDays {
		return newUsed, nil
	}

	if err := a.repo.UpdateUsedDays(ctx, d, newUsed); err != nil {
		return d.UsedDays, mapRepositoryError(err)
	}
	return newUsed, nil
}

func toBalance(d Driver) BalanceResponse {
	return BalanceResponse{
		DriverCode: d.ExternalCode,
		Allowance:  d.AnnualAllowanceDays,
		Used:       d.UsedDays,
		Remaining:  d.Remaining(),
	}
}
