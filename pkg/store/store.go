package store

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("run not found")

type Status uint

// dont change sequence of status fields, they are persisted
const (
	Unknown Status = iota
	Running
	Succeeded
	Failed
)

func (status Status) String() string {
	switch status {
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Run struct {
	gorm.Model

	Network string
	Signer  string
	Status  Status
	Error   string
}

type Step struct {
	gorm.Model

	RunID    uint `gorm:"index"`
	Name     string
	Contract string
	Address  string
	TxHash   string
}

type Store interface {
	// Begin opens a new run and returns its id.
	Begin(network string, signer common.Address) (uint, error)

	// Record appends a confirmed step to the run.
	Record(runID uint, step string, contract string, addr common.Address, txHash common.Hash) error

	// Finish closes the run, a nil err marks it as succeeded.
	Finish(runID uint, err error) error

	// Runs returns the most recent runs first.
	Runs(limit int) ([]Run, error)

	// RunsOf returns the most recent runs of one signer first.
	RunsOf(signer common.Address, limit int) ([]Run, error)

	// Steps returns the steps of a run in execution order.
	Steps(runID uint) ([]Step, error)
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&Run{}, &Step{}); err != nil {
		return nil, err
	}

	// Set max connections
	sqlDb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDb.SetMaxIdleConns(5)
	sqlDb.SetMaxOpenConns(5)
	sqlDb.SetConnMaxIdleTime(10 * time.Minute)
	return &store{db: db}, nil
}

func (store *store) Begin(network string, signer common.Address) (uint, error) {
	run := Run{
		Network: network,
		Signer:  signer.Hex(),
		Status:  Running,
	}
	if err := store.db.Create(&run).Error; err != nil {
		return 0, err
	}
	return run.ID, nil
}

func (store *store) Record(runID uint, step string, contract string, addr common.Address, txHash common.Hash) error {
	s := Step{
		RunID:    runID,
		Name:     step,
		Contract: contract,
		Address:  addr.Hex(),
		TxHash:   txHash.Hex(),
	}
	return store.db.Create(&s).Error
}

func (store *store) Finish(runID uint, err error) error {
	updates := map[string]interface{}{"status": Succeeded}
	if err != nil {
		updates = map[string]interface{}{"status": Failed, "error": err.Error()}
	}
	tx := store.db.Model(&Run{}).Where("id = ?", runID).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (store *store) Runs(limit int) ([]Run, error) {
	return store.runs(store.db, limit)
}

func (store *store) RunsOf(signer common.Address, limit int) ([]Run, error) {
	return store.runs(store.db.Where("signer = ?", signer.Hex()), limit)
}

func (store *store) runs(query *gorm.DB, limit int) ([]Run, error) {
	var runs []Run
	query = query.Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

func (store *store) Steps(runID uint) ([]Step, error) {
	var run Run
	if err := store.db.First(&run, runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	var steps []Step
	err := store.db.Where("run_id = ?", runID).Order("id asc").Find(&steps).Error
	return steps, err
}
