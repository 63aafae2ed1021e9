package job

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobFunc 定义作业执行函数
type JobFunc func(ctx context.Context) error

// Scheduler 作业调度器
type Scheduler struct {
	jobs    map[string]*ScheduledJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	logger  *zap.Logger
}

// ScheduledJob 表示一个调度的作业
type ScheduledJob struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       JobFunc
	once     bool

	mu      sync.Mutex
	runs    int
	lastErr error
}

// NewScheduler 创建调度器
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*ScheduledJob),
		logger: logger,
	}
}

// RegisterJob 注册周期作业，单次执行超时为 interval 的一半
func (s *Scheduler) RegisterJob(name string, interval time.Duration, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[name] = &ScheduledJob{
		name:     name,
		interval: interval,
		timeout:  interval / 2,
		fn:       fn,
	}

	s.logger.Info("Registered job", zap.String("job", name), zap.Duration("interval", interval))
}

// RegisterOnceJob 注册只运行一次的作业
func (s *Scheduler) RegisterOnceJob(name string, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[name] = &ScheduledJob{
		name: name,
		fn:   fn,
		once: true,
	}

	s.logger.Info("Registered once job", zap.String("job", name))
}

// Jobs 已注册的作业名
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Runs 作业已执行次数与最近一次错误
func (s *Scheduler) Runs(name string) (int, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs, j.lastErr
}

// Start 启动调度器
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)

	for _, job := range s.jobs {
		j := job
		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			if j.once {
				s.logger.Info("Running one-time job", zap.String("job", j.name))
				s.executeJob(ctx, j)
				return
			}
			s.runJob(ctx, j)
		}()
	}
}

// Stop 停止调度器，最多等待到 ctx 截止
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.logger.Warn("Stopping scheduler...")

	waitCh := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		s.logger.Info("All jobs stopped successfully")
	case <-ctx.Done():
		s.logger.Warn("Context deadline exceeded while waiting for jobs to stop")
	}
}

// runJob 立即执行一次，之后按 interval 执行
func (s *Scheduler) runJob(ctx context.Context, job *ScheduledJob) {
	s.logger.Info("Running job", zap.String("job", job.name), zap.Duration("interval", job.interval))

	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	s.executeJob(ctx, job)

	for {
		select {
		case <-ticker.C:
			s.executeJob(ctx, job)
		case <-ctx.Done():
			s.logger.Info("Stopping job", zap.String("job", job.name))
			return
		}
	}
}

// executeJob 执行作业并处理错误
func (s *Scheduler) executeJob(ctx context.Context, job *ScheduledJob) {
	jobCtx, cancel := context.WithCancel(ctx)
	if job.timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, job.timeout)
	}
	defer cancel()

	s.logger.Debug("Starting job execution", zap.String("job", job.name))
	startTime := time.Now()

	err := job.fn(jobCtx)

	job.mu.Lock()
	job.runs++
	job.lastErr = err
	job.mu.Unlock()

	if err != nil {
		s.logger.Error("Job execution failed",
			zap.String("job", job.name),
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)))
		return
	}
	s.logger.Debug("Job execution completed",
		zap.String("job", job.name),
		zap.Duration("duration", time.Since(startTime)))
}
