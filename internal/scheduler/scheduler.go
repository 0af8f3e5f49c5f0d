package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/NewsDigest/internal/metrics"
	"github.com/LJTian/NewsDigest/internal/pipeline"
)

type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Runner 执行一次完整运行
type Runner interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

// Scheduler 定时触发运行；同一时间最多只有一次运行，运行中收到的触发直接丢弃
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	state  atomic.Int32
	async  sync.WaitGroup

	mu   sync.Mutex
	ctx  context.Context
	last *pipeline.Report
}

func New(spec string, loc *time.Location, runner Runner) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	s := &Scheduler{
		cron:   c,
		runner: runner,
		ctx:    context.Background(),
	}

	_, err := c.AddFunc(spec, func() {
		s.RunOnce(s.baseContext())
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start ctx 是所有定时运行的父 context，进程退出时取消
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("scheduler started, next run at %s", s.Next().Format(time.RFC3339))
}

// Stop 停止定时器，返回的 context 在定时任务和 TriggerAsync 发起的运行都结束后关闭
func (s *Scheduler) Stop() context.Context {
	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.async.Wait()
		cancel()
	}()
	return ctx
}

// RunOnce 同步执行一次；已有运行在进行时返回 false，不排队
func (s *Scheduler) RunOnce(ctx context.Context) (pipeline.Report, bool) {
	if !s.acquire() {
		return pipeline.Report{}, false
	}
	return s.run(ctx), true
}

// TriggerAsync 供 HTTP 接口使用：立即返回是否成功发起
func (s *Scheduler) TriggerAsync() bool {
	if !s.acquire() {
		return false
	}
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		s.run(s.baseContext())
	}()
	return true
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) LastReport() (pipeline.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return pipeline.Report{}, false
	}
	return *s.last, true
}

// Next 下一次定时运行的时间；未启动时为零值
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) acquire() bool {
	if s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return true
	}
	log.Println("run already in progress, trigger dropped")
	metrics.TriggersDropped.Inc()
	return false
}

// run 调用前必须已经 acquire；无论成功、失败还是 panic 都回到 Idle
func (s *Scheduler) run(ctx context.Context) (report pipeline.Report) {
	defer s.state.Store(int32(Idle))
	defer func() {
		if r := recover(); r != nil {
			log.Printf("run panic: %v", r)
		}
	}()

	log.Println("start digest job...")
	report, err := s.runner.Run(ctx)
	if err != nil {
		log.Printf("digest job error: %v", err)
	}

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	log.Printf("digest job done, outcome=%s", report.Outcome)
	return report
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
