package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/sla"
	"github.com/spec-kit/servicedesk/internal/worker"
)

// Repositories is the storage the services run on.
type Repositories struct {
	Tickets     repository.TicketRepository
	Assignments repository.AssignmentRepository
	Staff       repository.StaffRepository
	Sections    repository.SectionRepository
	Holidays    repository.HolidayRepository
	Transactor  repository.Transactor
}

// Container holds the wired services shared by the API server and the CLI.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Metrics  *observability.Metrics
	Repos    Repositories

	Dispatcher    events.Dispatcher
	Clock         *sla.Clock
	Holidays      *service.HolidayService
	Workflow      *service.WorkflowService
	Sweeper       *service.EscalationSweeper
	Scheduler     *worker.EscalationScheduler
	Notifications *service.NotificationService
	Auth          *service.AuthService
	Org           *service.StaffService
}

// Build connects to the configured stores and wires every service. Without
// POSTGRES_DSN the container runs on an in-memory store.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	loc, err := cfg.SLA.Location()
	if err != nil {
		return nil, err
	}
	hour, minute, err := cfg.Escalation.RunAtClock()
	if err != nil {
		return nil, err
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	rds := persistence.NewRedis(cfg.Redis, logger)

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Postgres:   pg,
		Redis:      rds,
		Metrics:    observability.NewMetrics(),
		Repos:      newRepositories(pg, rds, cfg, logger),
		Dispatcher: events.NewInMemoryDispatcher(),
		Clock:      sla.NewClock(thresholds(cfg.SLA), loc),
	}

	c.Notifications = service.NewNotificationService(c.Dispatcher, logger, cfg.Notification, rds.Handle(), cfg.Redis.NotificationQueueKey)
	c.Holidays = service.NewHolidayService(c.Repos.Holidays)
	directory := service.NewDirectory(c.Repos.Staff, cfg.Escalation.CrossSectionFallback)
	recorder := service.NewRecorder(service.RecorderDependencies{
		Transactor:    c.Repos.Transactor,
		Notifier:      c.Notifications,
		Dispatcher:    c.Dispatcher,
		Metrics:       c.Metrics,
		Logger:        logger,
		Channel:       cfg.Notification.DefaultChannel,
		SystemActorID: cfg.Escalation.SystemActorID,
	})
	c.Workflow = service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:     c.Repos.Tickets,
		AssignmentRepo: c.Repos.Assignments,
		SectionRepo:    c.Repos.Sections,
		StaffRepo:      c.Repos.Staff,
		Directory:      directory,
		Recorder:       recorder,
		Clock:          c.Clock,
		Calendar:       c.Holidays,
	})

	sweeperDeps := service.SweeperDependencies{
		TicketRepo:    c.Repos.Tickets,
		Calendar:      c.Holidays,
		Clock:         c.Clock,
		Directory:     directory,
		Recorder:      recorder,
		LockTTL:       cfg.Escalation.LockTTL(),
		Workers:       cfg.Escalation.Workers,
		SystemActorID: cfg.Escalation.SystemActorID,
		Metrics:       c.Metrics,
		Logger:        logger.Named("sweeper"),
	}
	if rds.Handle() != nil {
		sweeperDeps.Locker = rds
	}
	c.Sweeper = service.NewEscalationSweeper(sweeperDeps)
	c.Scheduler = worker.NewEscalationScheduler(c.Sweeper, hour, minute, loc, cfg.Escalation.Enabled, logger.Named("scheduler"))

	c.Auth = service.NewAuthService(*cfg, c.Repos.Staff)
	c.Org = service.NewStaffService(*cfg, service.OrgDependencies{
		SectionRepo: c.Repos.Sections,
		StaffRepo:   c.Repos.Staff,
	})
	return c, nil
}

// SeedAdmin ensures the configured bootstrap administrator exists.
func (c *Container) SeedAdmin(ctx context.Context) error {
	email := c.Config.Auth.BootstrapAdminEmail
	if email == "" {
		return nil
	}
	_, created, err := c.Org.EnsureAdmin(ctx, email, c.Config.Auth.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		c.Logger.Info("bootstrap admin created", zap.String("email", email))
	}
	return nil
}

// Close releases store connections.
func (c *Container) Close() {
	c.Redis.Close()
	c.Postgres.Close()
}

func newRepositories(pg *persistence.Postgres, rds *persistence.Redis, cfg *config.Config, logger *zap.Logger) Repositories {
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Warn("running on in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		return Repositories{
			Tickets:     store.Tickets(),
			Assignments: store.Assignments(),
			Staff:       store.Staff(),
			Sections:    store.Sections(),
			Holidays:    repository.NewCachedHolidayRepository(store.Holidays(), rds.Handle(), cfg.Redis.HolidayCacheTTL(), logger),
			Transactor:  store,
		}
	}
	return Repositories{
		Tickets:     repository.NewTicketRepository(pool),
		Assignments: repository.NewAssignmentRepository(pool),
		Staff:       repository.NewStaffRepository(pool),
		Sections:    repository.NewSectionRepository(pool),
		Holidays:    repository.NewCachedHolidayRepository(repository.NewHolidayRepository(pool), rds.Handle(), cfg.Redis.HolidayCacheTTL(), logger),
		Transactor:  repository.NewTransactor(pool),
	}
}

func thresholds(cfg config.SLAConfig) sla.Thresholds {
	return sla.Thresholds{
		Inquiry:        cfg.InquiryDays,
		ComplaintMinor: cfg.ComplaintMinorDays,
		ComplaintMajor: cfg.ComplaintMajorDays,
		Suggestion:     cfg.SuggestionDays,
		Compliment:     cfg.ComplimentDays,
	}
}
