package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

// claimTTL outlives the day a claim covers, so a late or skewed tick on
// another replica finds the day already taken.
const claimTTL = 36 * time.Hour

// ClaimName names the unit of work for one reminder day.
func ClaimName(target time.Time) string {
	return "reminder:" + target.Format("2006-01-02")
}

// Claimer takes name for ttl, failing with redisclient.ErrLockNotAcquired
// when another process already holds it. *redisclient.Locker implements it.
type Claimer interface {
	Claim(ctx context.Context, name string, ttl time.Duration) (release func(ctx context.Context) error, err error)
}

// Worker runs the reminder job on a cron schedule.
type Worker struct {
	job     *Job
	locker  Claimer
	log     *zap.Logger
	spec    string
	timeout time.Duration
	now     func() time.Time

	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

// NewWorker builds a worker. locker may be nil when a single instance runs.
func NewWorker(job *Job, locker Claimer, spec string, timeout time.Duration, log *zap.Logger) *Worker {
	return &Worker{
		job:     job,
		locker:  locker,
		log:     log,
		spec:    spec,
		timeout: timeout,
		now:     time.Now,
	}
}

// Start schedules the job in the clinic's zone. An invalid schedule falls
// back to once a day at midnight.
func (w *Worker) Start(ctx context.Context) {
	w.runCtx, w.cancel = context.WithCancel(ctx)

	c := cron.New(cron.WithLocation(w.job.loc))
	if _, err := c.AddFunc(w.spec, w.tick); err != nil {
		w.log.Warn("reminder.worker: invalid cron spec, falling back to @daily",
			zap.String("spec", w.spec),
			zap.Error(err),
		)
		c = cron.New(cron.WithLocation(w.job.loc))
		_, _ = c.AddFunc("@daily", w.tick)
	}
	c.Start()
	w.cron = c

	w.log.Info("reminder.worker: scheduled", zap.String("spec", w.spec), zap.String("zone", w.job.loc.String()))
}

// Stop cancels a running job and waits for it to return.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

func (w *Worker) tick() {
	if _, err := w.RunOnce(w.runCtx, w.now()); err != nil {
		w.log.Warn("reminder.worker: run failed", zap.Error(err))
	}
}

// RunOnce performs a single run for tick once the target day is claimed.
// The claim is kept after the run, so every later tick for the same day,
// on this or any other instance, is skipped with a zero Result and no
// error. A run that fails before sending anything gives the claim back.
func (w *Worker) RunOnce(ctx context.Context, tick time.Time) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reminder run panicked: %v", r)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if w.locker != nil {
		name := ClaimName(w.job.Target(tick))
		release, claimErr := w.locker.Claim(runCtx, name, claimTTL)
		switch {
		case errors.Is(claimErr, redisclient.ErrLockNotAcquired):
			w.log.Info("reminder.worker: day already claimed, skipping", zap.String("claim", name))
			return Result{}, nil
		case claimErr != nil:
			return Result{}, fmt.Errorf("claim %s: %w", name, claimErr)
		}
		defer func() {
			// once anything went out the day stays claimed
			if err == nil || res.Sent > 0 || res.Failed > 0 {
				return
			}
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				w.log.Warn("reminder.worker: failed to release claim", zap.String("claim", name), zap.Error(relErr))
			}
		}()
	}

	started := time.Now()
	res, err = w.job.Run(runCtx, tick)
	if err != nil {
		return res, err
	}
	w.log.Info("reminder.worker: run complete",
		zap.String("target", res.Target.Format("2006-01-02")),
		zap.Int("selected", res.Selected),
		zap.Int("sent", res.Sent),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Duration("took", time.Since(started)),
	)
	return res, nil
}
