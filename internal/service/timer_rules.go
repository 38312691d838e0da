package service

import (
	"time"

	"timesheet/internal/models/task"
)

// timerEffect применяет побочные эффекты перехода и возвращает число секунд,
// добавленных к накопленному времени.
type timerEffect func(t *task.Task, now time.Time) int64

type transitionKey struct {
	from   task.Status
	action task.Action
}

type transitionRule struct {
	to     task.Status
	effect timerEffect
}

// Таблица допустимых переходов таймера. Всё, чего здесь нет, запрещено,
// в том числе любые переходы из completed и cancelled.
var timerTransitions = map[transitionKey]transitionRule{
	{task.StatusPending, task.ActionStart}:       {to: task.StatusInProgress, effect: startTimer},
	{task.StatusInProgress, task.ActionPause}:    {to: task.StatusPaused, effect: haltTimer},
	{task.StatusPaused, task.ActionResume}:       {to: task.StatusInProgress, effect: resumeTimer},
	{task.StatusInProgress, task.ActionStop}:     {to: task.StatusPaused, effect: haltTimer},
	{task.StatusInProgress, task.ActionComplete}: {to: task.StatusCompleted, effect: completeTask},
	{task.StatusPaused, task.ActionComplete}:     {to: task.StatusCompleted, effect: completeTask},
	{task.StatusPending, task.ActionComplete}:    {to: task.StatusCompleted, effect: completeTask},
}

func lookupTransition(from task.Status, action task.Action) (transitionRule, bool) {
	rule, ok := timerTransitions[transitionKey{from: from, action: action}]
	return rule, ok
}

// flushElapsed переносит активный интервал в накопленное время и гасит таймер
func flushElapsed(t *task.Task, now time.Time) int64 {
	if t.ActiveTimerStartedAt == nil {
		return 0
	}
	elapsed := task.ElapsedSeconds(*t.ActiveTimerStartedAt, now)
	t.TotalTrackedSeconds += elapsed
	t.ActiveTimerStartedAt = nil
	return elapsed
}

func startTimer(t *task.Task, now time.Time) int64 {
	started := now
	t.ActiveTimerStartedAt = &started
	if t.StartedAt == nil {
		first := now
		t.StartedAt = &first
	}
	return 0
}

func resumeTimer(t *task.Task, now time.Time) int64 {
	resumed := now
	t.ActiveTimerStartedAt = &resumed
	return 0
}

func haltTimer(t *task.Task, now time.Time) int64 {
	elapsed := flushElapsed(t, now)
	paused := now
	t.LastPausedAt = &paused
	return elapsed
}

func completeTask(t *task.Task, now time.Time) int64 {
	elapsed := flushElapsed(t, now)
	completed := now
	t.CompletedAt = &completed
	return elapsed
}
