package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"go.uber.org/zap"
)

const (
	eventDetailKeyPrefix     = "event:detail:"
	eventGenerationKeyPrefix = "event:gen:"
)

// CachedEventRepository serves event reads from Redis. The attendee counter
// itself is never decided from cache: increments and decrements always hit
// the wrapped repository and then bump the event's generation.
//
// Every cached entry carries the generation that was current before its
// database read. An entry is served only while that generation is still
// current, so a fill that raced with a counter change is never served.
type CachedEventRepository struct {
	repo  ports.EventRepository
	cache redis.Cmdable
	ttl   time.Duration
	log   *zap.Logger
}

type cachedEvent struct {
	Generation int64         `json:"generation"`
	Event      *domain.Event `json:"event"`
}

func NewCachedEventRepository(repo ports.EventRepository, cache redis.Cmdable, ttl time.Duration, log *zap.Logger) *CachedEventRepository {
	return &CachedEventRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func (r *CachedEventRepository) GetByID(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	key := eventKey(eventID)

	vals, err := r.cache.MGet(ctx, key, generationKey(eventID)).Result()
	if err != nil {
		r.log.Warn("event cache read failed", zap.String("event_id", eventID.String()), zap.Error(err))
		// without a generation a fill could not be validated later
		return r.repo.GetByID(ctx, eventID)
	}

	generation, ok := parseGeneration(vals[1])
	if !ok {
		r.log.Warn("event cache generation unreadable", zap.String("event_id", eventID.String()))
		return r.repo.GetByID(ctx, eventID)
	}

	if raw, hit := vals[0].(string); hit {
		var entry cachedEvent
		if err := json.Unmarshal([]byte(raw), &entry); err == nil && entry.Event != nil && entry.Generation == generation {
			return entry.Event, nil
		}
	}

	event, err := r.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	r.store(ctx, key, cachedEvent{Generation: generation, Event: event})

	return event, nil
}

func (r *CachedEventRepository) IncrementAttendees(ctx context.Context, eventID uuid.UUID) error {
	if err := r.repo.IncrementAttendees(ctx, eventID); err != nil {
		return err
	}

	r.invalidate(ctx, eventID)
	return nil
}

func (r *CachedEventRepository) DecrementAttendees(ctx context.Context, eventID uuid.UUID) (bool, error) {
	changed, err := r.repo.DecrementAttendees(ctx, eventID)
	if err != nil {
		return false, err
	}

	r.invalidate(ctx, eventID)
	return changed, nil
}

func (r *CachedEventRepository) store(ctx context.Context, key string, entry cachedEvent) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Warn("event cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate bumps the generation. If that fails the entry is deleted so the
// next read refills it; a fill racing that delete lives at most one TTL.
func (r *CachedEventRepository) invalidate(ctx context.Context, eventID uuid.UUID) {
	err := r.cache.Incr(ctx, generationKey(eventID)).Err()
	if err == nil {
		return
	}

	r.log.Warn("event cache generation bump failed", zap.String("event_id", eventID.String()), zap.Error(err))
	if err := r.cache.Del(ctx, eventKey(eventID)).Err(); err != nil {
		r.log.Warn("event cache invalidation failed", zap.String("event_id", eventID.String()), zap.Error(err))
	}
}

func parseGeneration(val interface{}) (int64, bool) {
	if val == nil {
		return 0, true
	}

	s, ok := val.(string)
	if !ok {
		return 0, false
	}

	generation, err := strconv.ParseInt(s, 10, 64)
	return generation, err == nil
}

func eventKey(eventID uuid.UUID) string {
	return eventDetailKeyPrefix + eventID.String()
}

func generationKey(eventID uuid.UUID) string {
	return eventGenerationKeyPrefix + eventID.String()
}
