package core

// Timer is a scheduled event. Handler returns SF_DONE or SF_RESCHEDULE;
// on reschedule it must have updated WakeTime.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	timerList   *Timer
	currentTime uint32
)

// ScheduleTimer adds t to the schedule, moving it if already queued.
func ScheduleTimer(t *Timer) {
	defer unlockTimers(lockTimers())

	unlinkTimer(t)
	insertTimer(t)
}

// cancelTimer removes t from the schedule if present.
func cancelTimer(t *Timer) {
	defer unlockTimers(lockTimers())

	unlinkTimer(t)
}

func unlinkTimer(t *Timer) {
	for link := &timerList; *link != nil; link = &(*link).Next {
		if *link == t {
			*link = t.Next
			break
		}
	}
	t.Next = nil
}

// insertTimer keeps the list sorted by WakeTime; equal times run in
// insertion order.
func insertTimer(t *Timer) {
	link := &timerList
	for *link != nil && (*link).WakeTime <= t.WakeTime {
		link = &(*link).Next
	}
	t.Next = *link
	*link = t
}

// TimerDispatch runs every timer whose WakeTime has been reached.
func TimerDispatch() {
	defer unlockTimers(lockTimers())

	for timerList != nil && timerList.WakeTime <= currentTime {
		timer := timerList
		timerList = timer.Next
		timer.Next = nil

		if timer.Handler(timer) == SF_RESCHEDULE {
			insertTimer(timer)
		}
	}
}

// resetTimers drops every pending timer.
func resetTimers() {
	defer unlockTimers(lockTimers())

	for t := timerList; t != nil; {
		next := t.Next
		t.Next = nil
		t = next
	}
	timerList = nil
}
