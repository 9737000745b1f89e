// Package service 管理进行中的生成任务：并发上限、进度快照、
// 以及推送给前端的进度事件流。
package service

import (
	"errors"
	"sync"
	"time"

	"github.com/yszxh/nano-image-generator/common"
	"github.com/yszxh/nano-image-generator/common/helper"
)

var ErrTooManyTasks = errors.New("同时进行的任务太多，请稍后再试")

const (
	TaskStatusRunning = "running"
	TaskStatusDone    = "done"
	TaskStatusFailed  = "failed"
)

// 完成后的任务保留一段时间供前端查询，之后由清理协程回收
const finishedTaskTTL = 10 * time.Minute

// Task 一次生成任务的对外快照
type Task struct {
	Id         string  `json:"id"`
	Action     string  `json:"action"`
	Kind       string  `json:"kind"`
	Prompt     string  `json:"prompt"`
	Status     string  `json:"status"`
	Stage      string  `json:"stage"`
	Percent    float64 `json:"percent"`
	Error      string  `json:"error,omitempty"`
	ResultId   string  `json:"resultId,omitempty"`
	CreatedAt  int64   `json:"createdAt"`
	FinishedAt int64   `json:"finishedAt,omitempty"`
}

// TaskEvent 推送给订阅者的进度事件
type TaskEvent struct {
	TaskId   string  `json:"taskId"`
	Status   string  `json:"status"`
	Stage    string  `json:"stage"`
	Percent  float64 `json:"percent"`
	Error    string  `json:"error,omitempty"`
	ResultId string  `json:"resultId,omitempty"`
}

type TaskManager struct {
	mu          sync.Mutex
	tasks       map[string]*Task
	running     int
	maxRunning  int
	subscribers map[chan TaskEvent]struct{}
	stopJanitor chan struct{}
}

func NewTaskManager(maxRunning int) *TaskManager {
	if maxRunning <= 0 {
		maxRunning = 3
	}
	m := &TaskManager{
		tasks:       make(map[string]*Task),
		maxRunning:  maxRunning,
		subscribers: make(map[chan TaskEvent]struct{}),
		stopJanitor: make(chan struct{}),
	}
	common.SafeGoroutine(m.janitor)
	return m
}

// Begin 注册一个新任务，超过并发上限时拒绝
func (m *TaskManager) Begin(action, kind, prompt string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running >= m.maxRunning {
		return nil, ErrTooManyTasks
	}
	task := &Task{
		Id:        helper.GenTaskID(),
		Action:    action,
		Kind:      kind,
		Prompt:    prompt,
		Status:    TaskStatusRunning,
		Percent:   0,
		CreatedAt: helper.GetTimestamp(),
	}
	m.tasks[task.Id] = task
	m.running++
	return m.snapshotLocked(task), nil
}

// Progress 更新任务进度并广播
func (m *TaskManager) Progress(id string, stage string, percent float64) {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok || task.Status != TaskStatusRunning {
		m.mu.Unlock()
		return
	}
	task.Stage = stage
	if percent > task.Percent {
		task.Percent = percent
	}
	event := m.eventLocked(task)
	m.mu.Unlock()
	m.broadcast(event)
}

// Finish 标记成功，resultId 指向落库的历史记录
func (m *TaskManager) Finish(id string, resultId string) {
	m.settle(id, func(task *Task) {
		task.Status = TaskStatusDone
		task.Percent = 100
		task.ResultId = resultId
	})
}

// Fail 标记失败
func (m *TaskManager) Fail(id string, message string) {
	m.settle(id, func(task *Task) {
		task.Status = TaskStatusFailed
		task.Error = message
	})
}

func (m *TaskManager) settle(id string, mutate func(*Task)) {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok || task.Status != TaskStatusRunning {
		m.mu.Unlock()
		return
	}
	mutate(task)
	task.FinishedAt = helper.GetTimestamp()
	m.running--
	event := m.eventLocked(task)
	m.mu.Unlock()
	m.broadcast(event)
}

// Get 按 id 取任务快照
func (m *TaskManager) Get(id string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, false
	}
	return m.snapshotLocked(task), true
}

// Snapshot 全部任务快照，供 /api/tasks 使用
func (m *TaskManager) Snapshot() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		tasks = append(tasks, m.snapshotLocked(task))
	}
	return tasks
}

// RunningCount 当前进行中的任务数
func (m *TaskManager) RunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Subscribe 订阅进度事件，返回取消函数。
// 通道带缓冲，消费不过来时事件会被丢弃而不是阻塞广播。
func (m *TaskManager) Subscribe() (<-chan TaskEvent, func()) {
	ch := make(chan TaskEvent, 64)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	cancel := func() {
		m.mu.Lock()
		delete(m.subscribers, ch)
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *TaskManager) Close() {
	close(m.stopJanitor)
}

func (m *TaskManager) broadcast(event TaskEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (m *TaskManager) eventLocked(task *Task) TaskEvent {
	return TaskEvent{
		TaskId:   task.Id,
		Status:   task.Status,
		Stage:    task.Stage,
		Percent:  task.Percent,
		Error:    task.Error,
		ResultId: task.ResultId,
	}
}

func (m *TaskManager) snapshotLocked(task *Task) *Task {
	clone := *task
	return &clone
}

func (m *TaskManager) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-finishedTaskTTL).Unix()
			m.mu.Lock()
			for id, task := range m.tasks {
				if task.Status != TaskStatusRunning && task.FinishedAt < cutoff {
					delete(m.tasks, id)
				}
			}
			m.mu.Unlock()
		case <-m.stopJanitor:
			return
		}
	}
}
