package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus 是后台任务的状态。
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// DefaultJobTTL 是已完成任务的默认保留时间
const DefaultJobTTL = 30 * time.Minute

// Job 记录一次异步调用的结果。
type Job struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	Path   string    `json:"-"`
	Status JobStatus `json:"status"`

	// Result 仅在成功时有值，内容取决于任务类型。
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// JobStore 在内存中保存异步任务，已完成的任务超过保留时间后被清理。
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

// NewJobStore 创建一个任务存储，ttlMinutes 不大于 0 时使用默认保留时间。
func NewJobStore(ttlMinutes int) *JobStore {
	ttl := DefaultJobTTL
	if ttlMinutes > 0 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Create 登记一个新的待执行任务并返回它的副本。
func (s *JobStore) Create(kind, path string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	job := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Path:      path,
		Status:    JobPending,
		CreatedAt: s.now(),
	}
	s.jobs[job.ID] = job
	return *job
}

// Complete 记录任务的结果，err 不为 nil 时任务标记为失败。
// 每个任务只记录第一次的结果。
func (s *JobStore) Complete(id string, result interface{}, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != JobPending {
		return
	}
	finished := s.now()
	job.FinishedAt = &finished
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
		return
	}
	job.Status = JobSucceeded
	job.Result = result
}

// Get 返回任务的副本。
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok || s.expired(job) {
		return Job{}, false
	}
	return *job, true
}

// Len 返回当前保存的任务数量。
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// pruneLocked 删除过期的任务，调用前必须持有写锁。
func (s *JobStore) pruneLocked() {
	for id, job := range s.jobs {
		if s.expired(job) {
			delete(s.jobs, id)
		}
	}
}

func (s *JobStore) expired(job *Job) bool {
	return job.FinishedAt != nil && s.now().Sub(*job.FinishedAt) > s.ttl
}
