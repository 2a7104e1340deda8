package auth

import (
	"context"

	"github.com/financeflow/financeflow/internal/utils"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ResetPurger removes expired password resets on a schedule.
type ResetPurger struct {
	repo  ResetRepo
	clock utils.Clock
	cron  *cron.Cron
}

func NewResetPurger(repo ResetRepo, clock utils.Clock) *ResetPurger {
	return &ResetPurger{repo: repo, clock: clock, cron: cron.New()}
}

func (p *ResetPurger) Start(schedule string) error {
	if _, err := p.cron.AddFunc(schedule, func() { p.Purge(context.Background()) }); err != nil {
		log.Errorf("could not schedule password reset purge: %v", err)
		return err
	}
	p.cron.Start()
	log.Infof("password reset purge scheduled %s", schedule)
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (p *ResetPurger) Stop() {
	<-p.cron.Stop().Done()
}

func (p *ResetPurger) Purge(ctx context.Context) {
	deleted, err := p.repo.DeleteExpired(ctx, p.clock.Now())
	if err != nil {
		log.Errorf("error purging expired password resets: %v", err)
		return
	}
	if deleted > 0 {
		log.Infof("purged %d expired password resets", deleted)
	}
}
