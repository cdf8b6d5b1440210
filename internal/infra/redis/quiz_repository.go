package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quiz-competition-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// storeIfCurrent writes the definition only while the quiz version still matches the one read
// before loading. KEYS: version, definition. ARGV: expected version, payload, ttl in ms.
var storeIfCurrent = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// QuizRepository caches full quiz definitions in Redis and falls back to a loader on cache miss.
// Definitions are stored as: SET quiz:{quizID}:definition {json} PX ttl
// Invalidate bumps quiz:{quizID}:version so loads that overlap it never write.
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	log    *zap.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration, logger *zap.Logger) *QuizRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    logger.Named("quiz_cache"),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.lookup(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.lookup(ctx, quizID); ok {
			return quiz, nil
		}

		version, versionErr := r.version(ctx, quizID)
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		ttl := r.ttlWithJitter()
		if ttl <= 0 || versionErr != nil {
			return quiz, nil
		}
		payload, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, err
		}
		keys := []string{versionKey(quizID), definitionKey(quizID)}
		stored, err := storeIfCurrent.Run(ctx, r.client, keys, version, payload, ttl.Milliseconds()).Int()
		switch {
		case err != nil:
			// The store answered; a cache write failure only costs a reload.
			r.log.Warn("cache quiz definition", zap.String("quiz_id", quizID), zap.Error(err))
		case stored == 0:
			r.log.Debug("quiz invalidated during load; not cached", zap.String("quiz_id", quizID))
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes cached definitions so the next read goes to the loader.
func (r *QuizRepository) Invalidate(ctx context.Context, quizIDs ...string) error {
	if len(quizIDs) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range quizIDs {
			pipe.Incr(ctx, versionKey(id))
			pipe.Del(ctx, definitionKey(id))
		}
		return nil
	})
	for _, id := range quizIDs {
		r.sf.Forget(id)
	}
	return err
}

// version returns the quiz's invalidation counter, "0" when it was never invalidated.
func (r *QuizRepository) version(ctx context.Context, quizID string) (string, error) {
	v, err := r.client.Get(ctx, versionKey(quizID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		r.log.Warn("read quiz version", zap.String("quiz_id", quizID), zap.Error(err))
		return "", err
	}
	return v, nil
}

func (r *QuizRepository) lookup(ctx context.Context, quizID string) (domain.Quiz, bool) {
	payload, err := r.client.Get(ctx, definitionKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("read cached quiz definition", zap.String("quiz_id", quizID), zap.Error(err))
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		r.log.Warn("decode cached quiz definition", zap.String("quiz_id", quizID), zap.Error(err))
		return domain.Quiz{}, false
	}
	return quiz, true
}

func definitionKey(quizID string) string {
	return "quiz:" + quizID + ":definition"
}

func versionKey(quizID string) string {
	return "quiz:" + quizID + ":version"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
