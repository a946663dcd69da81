package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/nutridash/apps/api/echo"
	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/dashboard"
	"github.com/trezcool/nutridash/core/timeframe"
	emailsvc "github.com/trezcool/nutridash/services/email"
	logsvc "github.com/trezcool/nutridash/services/logger"
	"github.com/trezcool/nutridash/storage/database"
	dummydb "github.com/trezcool/nutridash/storage/database/dummy"
	sqlxrepos "github.com/trezcool/nutridash/storage/database/sqlx"
)

// DemoDistrict is the district seeded into the in-memory storage.
const DemoDistrict = "demo"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage is the dashboard store and, for SQL engines, the connection behind it.
type Storage struct {
	Store dashboard.Store
	DB    core.DB // nil for the memory engine
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newCalendar(conf *core.Config) (*calendar.Calendar, error) {
	return calendar.New(conf.Calendar.Holidays)
}

func newResolver(conf *core.Config, cal *calendar.Calendar) *timeframe.Resolver {
	return timeframe.NewResolver(cal, conf.Calendar.EpochYear)
}

func newStorage(conf *core.Config, cal *calendar.Calendar, loggerParam DBLoggerParam) *Storage {
	ctx := context.Background()

	setUp := func() (*Storage, error) {
		switch conf.Database.Engine {
		case "memory":
			db, err := dummydb.Open()
			if err != nil {
				return nil, err
			}
			store := dummydb.NewDashboardRepository(db)
			now := time.Now().In(conf.Calendar.Location())
			if _, err = dashboard.Seed(ctx, store, cal, DemoDistrict, now.AddDate(0, -3, 0), now, now.Unix()); err != nil {
				return nil, err
			}
			return &Storage{Store: store}, nil
		case "postgres":
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
			db, err := database.Open(ctx, conf)
			if err != nil {
				return nil, err
			}
			if err = database.Migrate(db.DB); err != nil {
				_ = db.Close()
				return nil, err
			}
			return &Storage{Store: sqlxrepos.NewDashboardRepository(db, conf.Calendar.Location()), DB: db}, nil
		default:
			return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
		}
	}

	s, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return s
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	dashboard.InitValidators(validate, translator)
	return validate
}

func newDashboardService(storage *Storage, resolver *timeframe.Resolver, logger core.Logger, conf *core.Config) *dashboard.Service {
	return dashboard.NewService(storage.Store, resolver, logger, conf)
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newCalendar))
	must(c.Provide(newResolver))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newDashboardService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
