package meeting

import (
	"context"
	"time"

	"crm-relay/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisSlots implements SlotLimiter on the shared redis scripts. The TTL must
// outlive the worst-case poll duration (full backoff budget) so a crashed
// process cannot pin an account at its cap forever.
type RedisSlots struct {
	RDB   *redis.Client
	Limit int
	TTL   time.Duration
}

func (r *RedisSlots) Acquire(ctx context.Context, account string) (bool, error) {
	return utils.AcquirePollSlot(ctx, r.RDB, slotKey(account), r.Limit, r.TTL)
}

func (r *RedisSlots) Release(ctx context.Context, account string) {
	_ = utils.ReleasePollSlot(ctx, r.RDB, slotKey(account))
}

func slotKey(account string) string { return "poll_slots:" + account }
