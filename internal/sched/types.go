// internal/sched/types.go
package sched

import (
	"context"
	"fmt"
	"time"
)

// Func is a task body. Device tasks loop forever; returning ends the task.
type Func func(ctx context.Context) error

// Suspender releases the execution token around a blocking call.
type Suspender interface {
	Await(ctx context.Context, fn func(context.Context) error) error
}

// Timer suspends the calling task for d.
type Timer interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Executor is what a task needs from its scheduler.
type Executor interface {
	Suspender
	Timer
}

// TaskState is the scheduling state of one task.
type TaskState int32

const (
	TaskRunnable TaskState = iota // spawned, waiting for the token
	TaskRunning                   // holds the token
	TaskSuspended                 // parked at a suspension point
	TaskExited                    // body returned or panicked
)

func (s TaskState) String() string {
	switch s {
	case TaskRunnable:
		return "runnable"
	case TaskRunning:
		return "running"
	case TaskSuspended:
		return "suspended"
	case TaskExited:
		return "exited"
	default:
		return fmt.Sprintf("TaskState(%d)", int32(s))
	}
}

// TaskStatus is a snapshot of one task.
type TaskStatus struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Resumes   uint64    `json:"resumes"`
	LastError string    `json:"last_error,omitempty"`
	Exited    time.Time `json:"exited,omitempty"`
}
