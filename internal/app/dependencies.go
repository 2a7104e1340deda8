package app

import (
	"github.com/financeflow/financeflow/internal/config"
	"github.com/financeflow/financeflow/internal/event_bus"
	"github.com/financeflow/financeflow/internal/utils"
	"github.com/financeflow/financeflow/pkg/auth"
	"github.com/financeflow/financeflow/pkg/budget"
	"github.com/financeflow/financeflow/pkg/notification"
	"github.com/financeflow/financeflow/pkg/transaction"
	"github.com/financeflow/financeflow/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	UserService user.Service
	UserHandler *user.Handler

	TokenManager *auth.TokenManager
	ResetRepo    auth.ResetRepo
	AuthService  auth.Service
	AuthHandler  *auth.Handler
	ResetPurger  *auth.ResetPurger

	ResetNotifier *notification.ResetNotifier

	TransactionRepo    transaction.Repository
	TransactionService *transaction.ServiceImpl
	TransactionHandler *transaction.Handler

	BudgetRepo    budget.BudgetRepo
	BudgetService *budget.BudgetServiceImpl
	BudgetHandler *budget.BudgetHandler

	// AmqpForwarder is nil unless amqp.url is configured.
	AmqpForwarder *event_bus.AmqpForwarder

	unsubscribe []func()
}

// Repositories groups the storage implementations the services are built on.
type Repositories struct {
	Users        user.Repo
	Resets       auth.ResetRepo
	Transactions transaction.Repository
	Budgets      budget.BudgetRepo
}

func NewRepositories(db *pgxpool.Pool) Repositories {
	return Repositories{
		Users:        user.NewUserRepo(db),
		Resets:       auth.NewResetRepo(db),
		Transactions: transaction.NewRepository(db),
		Budgets:      budget.NewBudgetRepo(db),
	}
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(repos Repositories, cfg config.Application, clock utils.Clock) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = clock
	deps.EventBus = event_bus.NewEventBus()

	deps.UserService = user.NewUserService(repos.Users)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.TokenManager = auth.NewTokenManager(cfg.JWT, deps.Clock)
	deps.ResetRepo = repos.Resets
	deps.AuthService = auth.NewService(deps.UserService, deps.ResetRepo, deps.TokenManager, deps.EventBus, deps.Clock)
	deps.AuthHandler = auth.NewHandler(deps.AuthService)
	deps.ResetPurger = auth.NewResetPurger(deps.ResetRepo, deps.Clock)

	var mailer notification.Mailer
	if cfg.Mail.Enabled() {
		mailer = notification.NewSmtpMailer(cfg.Mail)
	} else {
		log.Warn("SMTP is not configured, password reset emails are disabled")
	}
	var sms notification.SmsSender
	if cfg.Twilio.Enabled() {
		sms = notification.NewTwilioClient(cfg.Twilio)
	} else {
		log.Warn("Twilio is not configured, password reset SMS is disabled")
	}
	deps.ResetNotifier = notification.NewResetNotifier(mailer, sms, cfg.Frontend.ResetUrl)
	deps.unsubscribe = append(deps.unsubscribe, deps.ResetNotifier.Subscribe(deps.EventBus))

	deps.TransactionRepo = repos.Transactions
	deps.TransactionService = transaction.NewService(deps.TransactionRepo, deps.EventBus, cfg.Pagination.PageSize)
	deps.TransactionHandler = transaction.NewHandler(deps.TransactionService, transaction.NewCsvRenderer())

	deps.BudgetRepo = repos.Budgets
	deps.BudgetService = budget.NewBudgetServiceImpl(deps.BudgetRepo, deps.TransactionRepo, deps.EventBus, deps.Clock)
	deps.BudgetHandler = budget.NewBudgetHandler(deps.BudgetService)

	if cfg.Amqp.Url != "" {
		forwarder, err := event_bus.DialAmqpForwarder(cfg.Amqp.Url, cfg.Amqp.Exchange)
		if err != nil {
			deps.ResetNotifier.Close()
			return nil, err
		}
		deps.unsubscribe = append(deps.unsubscribe, forwarder.Forward(deps.EventBus, event_bus.DomainEvents...))
		deps.AmqpForwarder = forwarder
	}

	return deps, nil
}

// Close releases background workers and broker connections.
func (d *Dependencies) Close() {
	for _, unsubscribe := range d.unsubscribe {
		unsubscribe()
	}
	d.ResetPurger.Stop()
	d.ResetNotifier.Close()
	if d.AmqpForwarder != nil {
		if err := d.AmqpForwarder.Close(); err != nil {
			log.Errorf("failed to close AMQP forwarder: %v", err)
		}
	}
}
