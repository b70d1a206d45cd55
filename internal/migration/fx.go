package migration

import (
	accountdomain "github.com/smallbiznis/mesa/internal/account/domain"
	"github.com/smallbiznis/mesa/internal/config"
	cfdomain "github.com/smallbiznis/mesa/internal/customfield/domain"
	itemdomain "github.com/smallbiznis/mesa/internal/item/domain"
	orderdomain "github.com/smallbiznis/mesa/internal/order/domain"
	roomdomain "github.com/smallbiznis/mesa/internal/room/domain"
	"github.com/smallbiznis/mesa/internal/seed"
	tabledomain "github.com/smallbiznis/mesa/internal/table/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite are dev conveniences; let gorm derive the
			// schema from the models instead of maintaining parallel SQL.
			if err := conn.AutoMigrate(
				&accountdomain.Account{},
				&accountdomain.User{},
				&itemdomain.ItemType{},
				&itemdomain.Tag{},
				&itemdomain.Item{},
				&roomdomain.Room{},
				&tabledomain.Table{},
				&orderdomain.Order{},
				&orderdomain.OrderItem{},
				&cfdomain.CustomField{},
				&cfdomain.CustomFieldOption{},
				&cfdomain.CustomFieldValue{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultAccount(conn, cfg.DefaultAccountID)
	}),
)
