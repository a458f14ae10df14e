package agreement

import (
	"database/sql"

	"go.uber.org/zap"

	"moonbounce/internal/agreement/controller"
	"moonbounce/internal/agreement/repository"
	"moonbounce/internal/agreement/service"
	"moonbounce/internal/agreement/usecase"
	"moonbounce/internal/agreement/worker"
	"moonbounce/internal/config"
	"moonbounce/internal/esign"
	"moonbounce/internal/mailer"
)

// Module bundles everything the agreement lifecycle exposes to the rest of
// the process: HTTP controllers and the background scheduler.
type Module struct {
	Webhook   *controller.WebhookController
	Agreement *controller.AgreementController
	Scheduler *worker.Scheduler
}

func NewModule(db *sql.DB, cfg *config.Config, sender mailer.Sender, logger *zap.Logger) *Module {
	repo := repository.NewMySQLAgreementRepository(db)

	client := esign.NewClient(cfg.Esign)
	manager := esign.NewManager(client, cfg.Esign, logger)

	reminderSvc := service.NewReminderService(repo, manager, sender, logger, cfg.Mail, cfg.Reminder)
	syncSvc := service.NewSyncService(repo, reminderSvc, logger, cfg.Esign.RecreateOnDecline)
	gateSvc := service.NewGateService(repo, logger)

	cycle := usecase.NewAgreementCycleUseCase(repo, syncSvc, reminderSvc, manager, logger)

	return &Module{
		Webhook:   controller.NewWebhookController(cycle, cfg.Esign.WebhookSecret, logger),
		Agreement: controller.NewAgreementController(gateSvc, cycle, logger),
		Scheduler: worker.NewScheduler(cycle, cfg.Reminder.SweepInterval, logger),
	}
}
