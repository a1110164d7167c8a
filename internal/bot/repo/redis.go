// Package repo persists sessions and conversation logs in Redis.
//
// Session state lives in a hash keyed by session id. MergeWrite only ever
// HSETs the non-empty fields of the partial state, so the merge with
// whatever is currently stored happens server-side: two concurrent turns
// for the same session cannot blank each other's confirmed fields.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otrade-bot/server/internal/bot/model"
	errx "github.com/otrade-bot/server/internal/core/error"
	logx "github.com/otrade-bot/server/pkg/logger"
)

// hash field names for session state
const (
	fieldProductName        = "product_name"
	fieldQuantity           = "quantity"
	fieldQuantityUnit       = "quantity_unit"
	fieldDestinationCountry = "destination_country"
	fieldCity               = "city"
	fieldStreetAddress      = "street_address"
	fieldShippingIncoterm   = "shipping_incoterm"
	fieldPaymentOption      = "payment_option"
	fieldCatalog            = "catalog"
	fieldPhoneNumber        = "phone_number"
	fieldLastActivity       = "last_activity"
)

type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *RedisStore) stateKey(sessionID string) string {
	return fmt.Sprintf("session:%s:state", sessionID)
}

func (r *RedisStore) messagesKey(sessionID string) string {
	return fmt.Sprintf("session:%s:messages", sessionID)
}

// Get returns the stored session, or nil when no state exists yet.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	key := r.stateKey(sessionID)

	fields, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load session state from redis")
		return nil, errx.WrapRedis(err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	sess := &model.Session{ID: sessionID, PhoneNumber: fields[fieldPhoneNumber]}
	sess.State.Order = model.OrderFields{
		ProductName:        fields[fieldProductName],
		QuantityUnit:       fields[fieldQuantityUnit],
		DestinationCountry: fields[fieldDestinationCountry],
		City:               fields[fieldCity],
		StreetAddress:      fields[fieldStreetAddress],
		ShippingIncoterm:   fields[fieldShippingIncoterm],
		PaymentOption:      fields[fieldPaymentOption],
	}
	if v := fields[fieldQuantity]; v != "" {
		if qty, err := strconv.Atoi(v); err == nil {
			sess.State.Order.Quantity = qty
		} else {
			logx.Warn().Str("session_id", sessionID).Str("quantity", v).Msg("ignoring unparsable stored quantity")
		}
	}
	if v := fields[fieldCatalog]; v != "" {
		if err := json.Unmarshal([]byte(v), &sess.State.Cache.Catalog); err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("ignoring unparsable cached catalog")
		}
	}
	if v := fields[fieldLastActivity]; v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			sess.LastActivity = ts
		}
	}
	return sess, nil
}

// Create persists a fresh session with the given initial state.
func (r *RedisStore) Create(ctx context.Context, sessionID, phoneNumber string, initial model.SessionState) (*model.Session, error) {
	if err := r.MergeWrite(ctx, sessionID, initial); err != nil {
		return nil, err
	}
	if phoneNumber != "" {
		if err := r.rdb.HSet(ctx, r.stateKey(sessionID), fieldPhoneNumber, phoneNumber).Err(); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to store session phone number")
			return nil, errx.WrapRedis(err)
		}
	}
	return &model.Session{
		ID:           sessionID,
		PhoneNumber:  phoneNumber,
		State:        initial,
		LastActivity: r.now().UTC(),
	}, nil
}

// MergeWrite HSETs only the populated fields of partial and touches
// last_activity plus the key TTL.
func (r *RedisStore) MergeWrite(ctx context.Context, sessionID string, partial model.SessionState) error {
	key := r.stateKey(sessionID)

	pairs := []any{fieldLastActivity, r.now().UTC().Format(time.RFC3339)}
	put := func(field, val string) {
		if val != "" {
			pairs = append(pairs, field, val)
		}
	}
	put(fieldProductName, partial.Order.ProductName)
	if partial.Order.Quantity > 0 {
		pairs = append(pairs, fieldQuantity, strconv.Itoa(partial.Order.Quantity))
	}
	put(fieldQuantityUnit, partial.Order.QuantityUnit)
	put(fieldDestinationCountry, partial.Order.DestinationCountry)
	put(fieldCity, partial.Order.City)
	put(fieldStreetAddress, partial.Order.StreetAddress)
	put(fieldShippingIncoterm, partial.Order.ShippingIncoterm)
	put(fieldPaymentOption, partial.Order.PaymentOption)

	if len(partial.Cache.Catalog) > 0 {
		b, err := json.Marshal(partial.Cache.Catalog)
		if err != nil {
			return fmt.Errorf("marshal catalog cache: %w", err)
		}
		pairs = append(pairs, fieldCatalog, string(b))
	}

	if err := r.rdb.HSet(ctx, key, pairs...).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write session state to redis")
		return errx.WrapRedis(err)
	}
	r.touch(ctx, key)
	return nil
}

// Append adds one message to the session's conversation log.
func (r *RedisStore) Append(ctx context.Context, sessionID string, msg model.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.now().UTC()
	}
	b, err := json.Marshal(msg)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.messagesKey(sessionID)

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	r.touch(ctx, key)
	return nil
}

// History returns up to limit most recent messages, oldest first. Rows that
// fail to decode are skipped rather than failing the whole turn.
func (r *RedisStore) History(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	key := r.messagesKey(sessionID)

	start := int64(-limit)
	if limit <= 0 {
		start = 0
	}
	rows, err := r.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]model.ChatMessage, 0, len(rows))
	for i, row := range rows {
		var m model.ChatMessage
		if err := json.Unmarshal([]byte(row), &m); err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Int("index", i).Msg("skipping unparsable message row")
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// touch extends the TTL on a session key; a failed touch is logged but never
// fails the surrounding write.
func (r *RedisStore) touch(ctx context.Context, key string) {
	if r.ttl <= 0 {
		return
	}
	if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
	} else if !ok {
		logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on session key")
	}
}

var (
	_ model.SessionStore    = (*RedisStore)(nil)
	_ model.ConversationLog = (*RedisStore)(nil)
)
