package service

import (
	"errors"
	"strings"
	"testing"
)

func TestBeginRespectsConcurrencyCap(t *testing.T) {
	m := NewTaskManager(3)
	defer m.Close()

	var ids []string
	for i := 0; i < 3; i++ {
		task, err := m.Begin("generate", "image", "prompt")
		if err != nil {
			t.Fatalf("Begin(%d) error = %v", i, err)
		}
		ids = append(ids, task.Id)
	}

	// 第 4 个任务被拒绝
	if _, err := m.Begin("generate", "image", "prompt"); !errors.Is(err, ErrTooManyTasks) {
		t.Fatalf("Begin() error = %v, want ErrTooManyTasks", err)
	}

	// 有任务完结后重新放行
	m.Finish(ids[0], "history-1")
	if _, err := m.Begin("generate", "image", "prompt"); err != nil {
		t.Fatalf("Begin() after finish error = %v", err)
	}
	if got := m.RunningCount(); got != 3 {
		t.Errorf("RunningCount() = %d, want 3", got)
	}
}

func TestTaskIds(t *testing.T) {
	m := NewTaskManager(3)
	defer m.Close()

	task, err := m.Begin("generate", "image", "p")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(task.Id, "task_") {
		t.Errorf("task id = %q, want task_ prefix", task.Id)
	}
}

func TestProgressMonotonicAndBroadcast(t *testing.T) {
	m := NewTaskManager(3)
	defer m.Close()

	events, cancel := m.Subscribe()
	defer cancel()

	task, err := m.Begin("generate", "image", "p")
	if err != nil {
		t.Fatal(err)
	}

	m.Progress(task.Id, "连接中", 5)
	m.Progress(task.Id, "创作中", 40)
	m.Progress(task.Id, "回退了", 10) // 百分比只增不减

	got, ok := m.Get(task.Id)
	if !ok {
		t.Fatal("task not found")
	}
	if got.Percent != 40 {
		t.Errorf("Percent = %v, want 40", got.Percent)
	}
	if got.Stage != "回退了" {
		t.Errorf("Stage = %q, 阶段文案应取最后一次", got.Stage)
	}

	// 三次进度各广播一个事件
	for i := 0; i < 3; i++ {
		select {
		case event := <-events:
			if event.TaskId != task.Id {
				t.Errorf("event.TaskId = %q", event.TaskId)
			}
		default:
			t.Fatalf("missing broadcast event %d", i)
		}
	}
}

func TestFinishAndFail(t *testing.T) {
	m := NewTaskManager(3)
	defer m.Close()

	done, _ := m.Begin("generate", "image", "p1")
	failed, _ := m.Begin("video", "video", "p2")

	m.Finish(done.Id, "history-42")
	m.Fail(failed.Id, "生成超时，请重试")

	gotDone, _ := m.Get(done.Id)
	if gotDone.Status != TaskStatusDone || gotDone.Percent != 100 || gotDone.ResultId != "history-42" {
		t.Errorf("done task = %+v", gotDone)
	}
	if gotDone.FinishedAt == 0 {
		t.Error("FinishedAt not set")
	}

	gotFailed, _ := m.Get(failed.Id)
	if gotFailed.Status != TaskStatusFailed || gotFailed.Error != "生成超时，请重试" {
		t.Errorf("failed task = %+v", gotFailed)
	}

	if m.RunningCount() != 0 {
		t.Errorf("RunningCount() = %d, want 0", m.RunningCount())
	}

	// 完结后的任务不再接受进度与二次完结
	m.Progress(done.Id, "late", 50)
	m.Fail(done.Id, "late failure")
	gotDone, _ = m.Get(done.Id)
	if gotDone.Status != TaskStatusDone || gotDone.Percent != 100 {
		t.Errorf("settled task mutated: %+v", gotDone)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	m := NewTaskManager(3)
	defer m.Close()

	task, _ := m.Begin("generate", "image", "p")
	snapshot := m.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("Snapshot() len = %d, want 1", len(snapshot))
	}
	snapshot[0].Percent = 99

	got, _ := m.Get(task.Id)
	if got.Percent != 0 {
		t.Error("snapshot mutation leaked into manager state")
	}
}

func TestSubscribeCancel(t *testing.T) {
	m := NewTaskManager(3)
	defer m.Close()

	events, cancel := m.Subscribe()
	cancel()

	task, _ := m.Begin("generate", "image", "p")
	m.Progress(task.Id, "stage", 10)

	select {
	case <-events:
		t.Error("cancelled subscriber still receives events")
	default:
	}
}
