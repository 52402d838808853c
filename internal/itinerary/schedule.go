package itinerary

import (
	"math"
	"sort"
)

// endOfDaySentinel orders items without a start time after every timed item.
const endOfDaySentinel = "24:00"

// BuildSchedule turns a flat item collection into the day-ordered display
// structure. Day groups 1..durationDays are always emitted, empty or not, in
// ascending order; items whose day exceeds durationDays are kept and appended
// as extra trailing day groups; the unscheduled bucket is always emitted
// last, even when empty. Items with a nil, zero, or negative day number land
// in the unscheduled bucket. The function is pure and never drops an item.
func BuildSchedule(items []ItemView, durationDays int) []DayGroup {
	if durationDays < 0 {
		durationDays = 0
	}

	buckets := make(map[int][]ItemView)
	extraDays := make([]int, 0)
	for _, item := range items {
		day := scheduleDay(item)
		if _, seen := buckets[day]; !seen && day > durationDays {
			extraDays = append(extraDays, day)
		}
		buckets[day] = append(buckets[day], item)
	}
	sort.Ints(extraDays)

	groups := make([]DayGroup, 0, durationDays+len(extraDays)+1)
	for day := 1; day <= durationDays; day++ {
		groups = append(groups, DayGroup{Day: day, Items: sortWithinDay(buckets[day])})
	}
	for _, day := range extraDays {
		groups = append(groups, DayGroup{Day: day, Items: sortWithinDay(buckets[day])})
	}
	groups = append(groups, DayGroup{Day: DayUnscheduled, Items: sortWithinDay(buckets[DayUnscheduled])})

	return groups
}

// scheduleDay resolves the grouping key for an item. Anything without a
// positive day number is unscheduled.
func scheduleDay(item ItemView) int {
	if item.DayNumber == nil || *item.DayNumber <= 0 {
		return DayUnscheduled
	}
	return *item.DayNumber
}

// sortWithinDay orders one bucket: position ascending, then start time
// ascending with untimed items treated as end of day, then original fetch
// order. The sort is stable so equal keys keep their input order.
func sortWithinDay(items []ItemView) []ItemView {
	if items == nil {
		return []ItemView{}
	}
	ordered := make([]ItemView, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		left, right := sortPosition(ordered[i]), sortPosition(ordered[j])
		if left != right {
			return left < right
		}
		return sortStartTime(ordered[i]) < sortStartTime(ordered[j])
	})
	return ordered
}

// sortPosition treats a negative position as unset, which sorts last.
func sortPosition(item ItemView) int {
	if item.Position < 0 {
		return math.MaxInt
	}
	return item.Position
}

// sortStartTime relies on HH:MM strings comparing lexicographically.
func sortStartTime(item ItemView) string {
	if item.StartTime == "" {
		return endOfDaySentinel
	}
	return item.StartTime
}
