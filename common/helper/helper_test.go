package helper

import (
	"strings"
	"testing"
	"time"
)

func TestAssignOrDefault(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue string
		want         string
	}{
		{"custom-model", "default-model", "custom-model"},
		{"", "default-model", "default-model"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := AssignOrDefault(tt.value, tt.defaultValue); got != tt.want {
			t.Errorf("AssignOrDefault(%q, %q) = %q, want %q", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}

func TestSeconds2Duration(t *testing.T) {
	if got := Seconds2Duration(300); got != 5*time.Minute {
		t.Errorf("Seconds2Duration(300) = %v, want 5m", got)
	}
	if got := Seconds2Duration(0); got != 0 {
		t.Errorf("Seconds2Duration(0) = %v, want 0", got)
	}
}

func TestGenTaskID(t *testing.T) {
	// 生成多个任务ID，确保格式正确且互不重复
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenTaskID()
		if !strings.HasPrefix(id, "task_") {
			t.Errorf("GenTaskID() = %v, want prefix 'task_'", id)
		}
		if len(id) != 37 {
			t.Errorf("GenTaskID() length = %v, want 37", len(id))
		}
		if ids[id] {
			t.Errorf("GenTaskID() generated duplicate ID: %v", id)
		}
		ids[id] = true
	}
}

func TestGenRequestID(t *testing.T) {
	id := GenRequestID()
	for _, r := range id {
		if r < '0' || r > '9' {
			t.Fatalf("GenRequestID() = %v, want digits only", id)
		}
	}
}
