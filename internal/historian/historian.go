// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pietjesbak/puppies/internal/cache"
	"github.com/pietjesbak/puppies/internal/database"
)

// Service drains announcement records from the Redis queue and persists them
// to Postgres in batches. It also watches for games that stopped announcing
// and marks them abandoned.
type Service struct {
	redisClient *redis.Client
	logger      *logrus.Logger

	batchSize  int
	flushDelay time.Duration
	inactivity time.Duration

	// lastActivity maps game id to the time of its latest announcement.
	lastActivity sync.Map

	batchMu sync.Mutex
	batch   []cache.AnnouncementRecord

	// sink receives flushed batches; replaced in tests.
	sink func(ctx context.Context, records []cache.AnnouncementRecord) error

	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewService builds a historian from the environment:
//   - REDIS_ADDR (default "localhost:6379")
//   - HISTORIAN_BATCH_SIZE (default 20)
//   - HISTORIAN_FLUSH_MS (default 500)
//   - GAME_INACTIVITY_TIMEOUT_SEC (default 600)
func NewService(logger *logrus.Logger) *Service {
	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		redisClient: rdb,
		logger:      logger,
		batchSize:   getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		flushDelay:  time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		inactivity:  time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
		ctx:         ctx,
		cancelFn:    cancel,
	}
	s.batch = make([]cache.AnnouncementRecord, 0, s.batchSize)
	s.sink = s.insertBatch
	return s
}

// Run connects the database and blocks in the drain and inactivity loops
// until Stop is called. Unlike the game server, the historian exists only to
// write Postgres, so a missing database is fatal.
func (s *Service) Run() {
	if err := database.ConnectDB(); err != nil {
		s.logger.Fatalf("connect database: %v", err)
	}

	go s.drainLoop()
	go s.inactivityLoop()

	s.logger.Info("historian started")
	<-s.ctx.Done()
	s.logger.Info("historian shutting down")
}

// Stop cancels the service loops.
func (s *Service) Stop() {
	s.cancelFn()
}

// drainLoop pops records off the queue and batches them; a ticker flushes
// partial batches so quiet periods still persist promptly.
func (s *Service) drainLoop() {
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()

	queue := cache.QueueName()
	for {
		select {
		case <-s.ctx.Done():
			s.flush()
			return

		case <-ticker.C:
			s.flush()

		default:
			res, err := s.redisClient.BLPop(s.ctx, 3*time.Second, queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && s.ctx.Err() == nil {
					s.logger.Errorf("blpop: %v", err)
				}
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record cache.AnnouncementRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				s.logger.Warnf("invalid announcement record: %v", err)
				continue
			}

			s.lastActivity.Store(record.GameID, time.Now())
			s.append(record)
		}
	}
}

// append adds a record and flushes once the batch threshold is hit.
func (s *Service) append(record cache.AnnouncementRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, record)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()

	if full {
		s.flush()
	}
}

// flush hands the accumulated batch to the sink.
func (s *Service) flush() {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	records := make([]cache.AnnouncementRecord, len(s.batch))
	copy(records, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.sink(ctx, records); err != nil {
		s.logger.Errorf("flush %d records: %v", len(records), err)
	} else {
		s.logger.Debugf("flushed %d records", len(records))
	}
}

// insertBatch writes a batch of records in one transaction, upserting the
// games row for each.
func (s *Service) insertBatch(ctx context.Context, records []cache.AnnouncementRecord) error {
	return pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertQ := `
			INSERT INTO games (id, status, start_time)
			VALUES ($1, 'in_progress', NOW())
			ON CONFLICT (id) DO NOTHING
		`
		insertQ := `
			INSERT INTO game_announcements (game_id, idx, announcement, recorded_at)
			VALUES ($1, $2, $3, to_timestamp($4 / 1000.0))
			ON CONFLICT (game_id, idx) DO NOTHING
		`
		for _, rec := range records {
			if _, err := tx.Exec(ctx, upsertQ, rec.GameID); err != nil {
				return fmt.Errorf("upsert game %s: %w", rec.GameID, err)
			}
			if _, err := tx.Exec(ctx, insertQ, rec.GameID, rec.Index, []byte(rec.Announcement), rec.Timestamp); err != nil {
				return fmt.Errorf("insert announcement %d for game %s: %w", rec.Index, rec.GameID, err)
			}
		}
		return nil
	})
}

// inactivityLoop marks games abandoned once they stop announcing for longer
// than the configured threshold.
func (s *Service) inactivityLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			s.lastActivity.Range(func(key, val interface{}) bool {
				gameID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > s.inactivity {
					s.markAbandoned(gameID)
					s.lastActivity.Delete(gameID)
				}
				return true
			})
		}
	}
}

func (s *Service) markAbandoned(gameID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, gameID)
		return e
	})
	if err != nil {
		s.logger.Errorf("mark game %s abandoned: %v", gameID, err)
	} else {
		s.logger.Infof("marked game %s abandoned after inactivity", gameID)
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
