package migrations

import (
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_gateways",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.Gateway{}, &domain.GatewayParam{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_gateway_params_gateway_id ON gateway_params (gateway_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropTable(&domain.GatewayParam{}); err != nil {
					return err
				}
				return tx.Migrator().DropTable(&domain.Gateway{})
			},
		},
		{
			ID: "000002_create_queue_entries",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.QueueEntry{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_queue_entries_state_created ON queue_entries (state, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_queue_entries_gateway_id ON queue_entries (gateway_id)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.QueueEntry{})
			},
		},
		{
			ID: "000003_create_history_entries",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.HistoryEntry{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_history_entries_gateway_id ON history_entries (gateway_id)`,
					`CREATE INDEX IF NOT EXISTS idx_history_entries_dlr ON history_entries (created_at DESC) WHERE acknowledgement = '' AND message_id <> ''`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.HistoryEntry{})
			},
		},
		{
			ID: "000004_create_message_templates",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.MessageTemplate{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.MessageTemplate{})
			},
		},
		{
			ID: "000005_seed_status_code_refs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.StatusCodeRef{}); err != nil {
					return err
				}
				refs := domain.StatusCodeRefs()
				for i := range refs {
					if err := tx.Where("code = ?", refs[i].Code).
						FirstOrCreate(&refs[i]).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.StatusCodeRef{})
			},
		},
	})

	return m.Migrate()
}
