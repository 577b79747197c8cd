package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/enrollment/apps/api/echo"
	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/admin"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/seed"
	"github.com/trezcool/enrollment/core/user"
	logsvc "github.com/trezcool/enrollment/services/logger"
	"github.com/trezcool/enrollment/storage/database"
	inmemdb "github.com/trezcool/enrollment/storage/database/inmem"
	sqlxrepos "github.com/trezcool/enrollment/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// StorageCloser releases the storage engine.
	StorageCloser func() error

	// Storage is the storage engine selected by `storage.engine`.
	Storage struct {
		dig.Out
		Close   StorageCloser
		Tx      core.Transactor
		UsrRepo user.Repository
		CrsRepo course.Repository
		EnrRepo enrollment.Repository
	}

	ServerParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       *user.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		AdminSvc      *admin.Service
		Validate      *validator.Validate
		Translator    ut.Translator
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Storage.Engine == core.StorageMemory {
		db := inmemdb.Open()
		return Storage{
			Close:   func() error { return nil },
			Tx:      db,
			UsrRepo: inmemdb.NewUserRepository(db),
			CrsRepo: inmemdb.NewCourseRepository(db),
			EnrRepo: inmemdb.NewEnrollmentRepository(db),
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db.DB); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	return Storage{
		Close:   db.Close,
		Tx:      database.NewTransactor(db),
		UsrRepo: sqlxrepos.NewUserRepository(db),
		CrsRepo: sqlxrepos.NewCourseRepository(db),
		EnrRepo: sqlxrepos.NewEnrollmentRepository(db),
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newAdminService(
	tx core.Transactor,
	usrRepo user.Repository,
	crsRepo course.Repository,
	enrRepo enrollment.Repository,
	validate *validator.Validate,
	logger core.Logger,
) *admin.Service {
	return admin.NewService(admin.Deps{
		Tx:       tx,
		UsrRepo:  usrRepo,
		CrsRepo:  crsRepo,
		EnrRepo:  enrRepo,
		Validate: validate,
		Logger:   logger,
	})
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		EnrollmentSvc: p.EnrollmentSvc,
		AdminSvc:      p.AdminSvc,
		Validate:      p.Validate,
		Translator:    p.Translator,
	})
}

// New returns a new dependency injection dig.Container.
// `newConfig` defaults to core.NewConfig.
func New(newConfig ...func() *core.Config) *dig.Container {
	c := dig.New()

	confFunc := core.NewConfig
	if len(newConfig) > 0 {
		confFunc = newConfig[0]
	}

	must(c.Provide(confFunc))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(newAdminService))
	must(c.Provide(seed.NewSeeder))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
