package model

// TimeSlot is one of the fixed one-hour intervals offered every day.
type TimeSlot string

const (
	Slot9AM  TimeSlot = "9AM-10AM"
	Slot10AM TimeSlot = "10AM-11AM"
	Slot11AM TimeSlot = "11AM-12PM"
	Slot12PM TimeSlot = "12PM-1PM"
	Slot1PM  TimeSlot = "1PM-2PM"
	Slot2PM  TimeSlot = "2PM-3PM"
	Slot3PM  TimeSlot = "3PM-4PM"
	Slot4PM  TimeSlot = "4PM-5PM"
)

// DailySchedule lists every slot seeded for a day, in display order.
var DailySchedule = []TimeSlot{
	Slot9AM,
	Slot10AM,
	Slot11AM,
	Slot12PM,
	Slot1PM,
	Slot2PM,
	Slot3PM,
	Slot4PM,
}

func ParseTimeSlot(s string) (TimeSlot, bool) {
	for _, ts := range DailySchedule {
		if string(ts) == s {
			return ts, true
		}
	}
	return "", false
}

// Order returns the position of the slot within the day, or -1 for unknown labels.
func (t TimeSlot) Order() int {
	for i, ts := range DailySchedule {
		if ts == t {
			return i
		}
	}
	return -1
}

func (t TimeSlot) String() string {
	return string(t)
}
