package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	KeyRunCounter = "swapdeploy:runs"
)

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(redisURL string) (Store, error) {
	parsedURL, err := url.Parse(redisURL)
	if err != nil {
		return nil, err
	}
	redisPassword, _ := parsedURL.User.Password()
	client := redis.NewClient(&redis.Options{
		Addr:     parsedURL.Host,
		Password: redisPassword,
		DB:       0, // Use default DB.
	})
	return redisStore{client: client}, nil
}

func (rs redisStore) Begin(network string, signer common.Address) (uint, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := rs.client.Incr(ctx, KeyRunCounter).Result()
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	run := Run{
		Model:   gorm.Model{ID: uint(id), CreatedAt: now, UpdatedAt: now},
		Network: network,
		Signer:  signer.Hex(),
		Status:  Running,
	}
	if err := rs.putRun(ctx, run); err != nil {
		return 0, err
	}
	return run.ID, nil
}

func (rs redisStore) Record(runID uint, step string, contract string, addr common.Address, txHash common.Hash) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	now := time.Now().UTC()
	data, err := json.Marshal(Step{
		Model:    gorm.Model{CreatedAt: now, UpdatedAt: now},
		RunID:    runID,
		Name:     step,
		Contract: contract,
		Address:  addr.Hex(),
		TxHash:   txHash.Hex(),
	})
	if err != nil {
		return err
	}
	return rs.client.RPush(ctx, stepsKey(runID), data).Err()
}

func (rs redisStore) Finish(runID uint, err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	run, getErr := rs.getRun(ctx, runID)
	if getErr != nil {
		return getErr
	}
	run.Status = Succeeded
	if err != nil {
		run.Status = Failed
		run.Error = err.Error()
	}
	run.UpdatedAt = time.Now().UTC()
	return rs.putRun(ctx, run)
}

func (rs redisStore) Runs(limit int) ([]Run, error) {
	return rs.runs(limit, func(Run) bool { return true })
}

func (rs redisStore) RunsOf(signer common.Address, limit int) ([]Run, error) {
	return rs.runs(limit, func(run Run) bool { return run.Signer == signer.Hex() })
}

// runs walks the runs from the newest one, only the runs passing match count towards limit.
func (rs redisStore) runs(limit int, match func(Run) bool) ([]Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	last, err := rs.client.Get(ctx, KeyRunCounter).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	runs := []Run{}
	for id := uint(last); id > 0; id-- {
		if limit > 0 && len(runs) >= limit {
			break
		}
		run, err := rs.getRun(ctx, id)
		if err != nil {
			if errors.Is(err, ErrRunNotFound) {
				continue
			}
			return nil, err
		}
		if match(run) {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

func (rs redisStore) Steps(runID uint) ([]Step, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rs.getRun(ctx, runID); err != nil {
		return nil, err
	}
	items, err := rs.client.LRange(ctx, stepsKey(runID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	steps := make([]Step, len(items))
	for i, item := range items {
		if err := json.Unmarshal([]byte(item), &steps[i]); err != nil {
			return nil, err
		}
	}
	return steps, nil
}

func (rs redisStore) getRun(ctx context.Context, runID uint) (Run, error) {
	data, err := rs.client.Get(ctx, runKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, err
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return Run{}, err
	}
	return run, nil
}

func (rs redisStore) putRun(ctx context.Context, run Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return rs.client.Set(ctx, runKey(run.ID), data, 0).Err()
}

func runKey(runID uint) string {
	return fmt.Sprintf("%v:%v", KeyRunCounter, runID)
}

func stepsKey(runID uint) string {
	return fmt.Sprintf("%v:%v:steps", KeyRunCounter, runID)
}
