package server

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/denysvitali/proximity-go/server/models"
	"github.com/denysvitali/proximity-go/store"
)

// Archive persists what the in-memory store forgets.
type Archive interface {
	SaveObservation(ctx context.Context, e store.Entry) error
	SaveContact(ctx context.Context, c *models.Contact) error
	Contacts(ctx context.Context, rpi string) ([]models.Contact, error)
	KeyAliases(ctx context.Context, keyIDs []string) ([]models.KeyAlias, error)
}

type gormArchive struct {
	db *gorm.DB
}

func openArchive(dsn string) (*gormArchive, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:        dsn,
		DriverName: "postgres",
	}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	m := []any{
		&models.Observation{},
		&models.Contact{},
		&models.KeyAlias{},
	}
	for _, m := range m {
		if err := db.AutoMigrate(m); err != nil {
			return nil, fmt.Errorf("failed to migrate model: %w", err)
		}
	}
	return &gormArchive{db: db}, nil
}

func (a *gormArchive) SaveObservation(ctx context.Context, e store.Entry) error {
	o := models.ObservationFromEntry(e)
	tx := a.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&o)
	if tx.Error != nil {
		return fmt.Errorf("unable to insert observation: %w", tx.Error)
	}
	return nil
}

func (a *gormArchive) SaveContact(ctx context.Context, c *models.Contact) error {
	tx := a.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(c)
	if tx.Error != nil {
		return fmt.Errorf("unable to insert contact: %w", tx.Error)
	}
	return nil
}

func (a *gormArchive) Contacts(ctx context.Context, rpi string) ([]models.Contact, error) {
	var contacts []models.Contact
	tx := a.db.
		WithContext(ctx).
		Where("rpi = ?", rpi).
		Order("seen_at desc").
		Find(&contacts)
	if tx.Error != nil {
		return nil, fmt.Errorf("unable to fetch contacts: %w", tx.Error)
	}
	return contacts, nil
}

func (a *gormArchive) KeyAliases(ctx context.Context, keyIDs []string) ([]models.KeyAlias, error) {
	var keyAliases []models.KeyAlias
	tx := a.db.
		WithContext(ctx).
		Model(&models.KeyAlias{}).
		Where("key_id IN ?", keyIDs).
		Find(&keyAliases)
	if tx.Error != nil {
		return nil, fmt.Errorf("unable to fetch key aliases: %w", tx.Error)
	}
	return keyAliases, nil
}

var _ Archive = &gormArchive{}

// archiveEvicted stores evicted entries.
func archiveEvicted(a Archive) store.EvictFunc {
	return func(entries []store.Entry) {
		for _, e := range entries {
			if err := a.SaveObservation(context.Background(), e); err != nil {
				logger.Errorf("unable to archive %s: %v", e.RPI, err)
			}
		}
	}
}
