package itinerary

import (
	"testing"
)

func dayPtr(value int) *int {
	return &value
}

func viewWith(id string, day *int, position int, startTime string) ItemView {
	return ItemView{
		Item: Item{
			ItemID:    id,
			TripID:    "trip-1",
			Title:     "item " + id,
			DayNumber: day,
			Position:  position,
			StartTime: startTime,
		},
	}
}

func groupIDs(group DayGroup) []string {
	ids := make([]string, 0, len(group.Items))
	for _, item := range group.Items {
		ids = append(ids, item.ItemID)
	}
	return ids
}

func TestBuildScheduleOrdersDaysWithUnscheduledLast(t *testing.T) {
	items := []ItemView{
		viewWith("a", dayPtr(2), 0, ""),
		viewWith("b", dayPtr(1), 0, ""),
		viewWith("c", nil, 0, ""),
	}

	groups := BuildSchedule(items, 2)

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].Day != 1 || len(groups[0].Items) != 1 || groups[0].Items[0].ItemID != "b" {
		t.Fatalf("unexpected day 1 group: %#v", groupIDs(groups[0]))
	}
	if groups[1].Day != 2 || len(groups[1].Items) != 1 || groups[1].Items[0].ItemID != "a" {
		t.Fatalf("unexpected day 2 group: %#v", groupIDs(groups[1]))
	}
	if groups[2].Day != DayUnscheduled || len(groups[2].Items) != 1 || groups[2].Items[0].ItemID != "c" {
		t.Fatalf("unexpected unscheduled group: %#v", groupIDs(groups[2]))
	}
}

func TestBuildScheduleEmitsEmptyDayGroups(t *testing.T) {
	groups := BuildSchedule(nil, 3)

	if len(groups) != 4 {
		t.Fatalf("expected 3 empty days plus unscheduled, got %d groups", len(groups))
	}
	for index, group := range groups[:3] {
		if group.Day != index+1 {
			t.Fatalf("expected day %d at index %d, got %d", index+1, index, group.Day)
		}
		if len(group.Items) != 0 {
			t.Fatalf("expected day %d to be empty", group.Day)
		}
	}
	if groups[3].Day != DayUnscheduled || len(groups[3].Items) != 0 {
		t.Fatalf("expected empty trailing unscheduled group, got %#v", groups[3])
	}
}

func TestBuildScheduleKeepsOutOfRangeDaysAsTrailingGroups(t *testing.T) {
	items := []ItemView{
		viewWith("late", dayPtr(7), 0, ""),
		viewWith("later", dayPtr(9), 0, ""),
		viewWith("early", dayPtr(1), 0, ""),
	}

	groups := BuildSchedule(items, 2)

	if len(groups) != 5 {
		t.Fatalf("expected days 1,2,7,9 plus unscheduled, got %d groups", len(groups))
	}
	if groups[2].Day != 7 || groups[2].Items[0].ItemID != "late" {
		t.Fatalf("expected day 7 after in-range days, got day %d", groups[2].Day)
	}
	if groups[3].Day != 9 || groups[3].Items[0].ItemID != "later" {
		t.Fatalf("expected day 9 last before unscheduled, got day %d", groups[3].Day)
	}
}

func TestBuildScheduleTreatsNonPositiveDaysAsUnscheduled(t *testing.T) {
	items := []ItemView{
		viewWith("zero", dayPtr(0), 0, ""),
		viewWith("negative", dayPtr(-3), 1, ""),
	}

	groups := BuildSchedule(items, 1)

	unscheduled := groups[len(groups)-1]
	if unscheduled.Day != DayUnscheduled {
		t.Fatalf("expected unscheduled group last, got day %d", unscheduled.Day)
	}
	if len(unscheduled.Items) != 2 {
		t.Fatalf("expected both items in the unscheduled group, got %d", len(unscheduled.Items))
	}
}

func TestBuildScheduleNeverDropsOrDuplicatesItems(t *testing.T) {
	items := []ItemView{
		viewWith("a", dayPtr(1), 2, ""),
		viewWith("b", dayPtr(1), 2, ""),
		viewWith("c", dayPtr(5), 0, ""),
		viewWith("d", nil, -1, ""),
		viewWith("e", dayPtr(-2), 0, ""),
		viewWith("f", dayPtr(2), 0, "09:00"),
	}

	groups := BuildSchedule(items, 2)

	seen := map[string]int{}
	for _, group := range groups {
		for _, item := range group.Items {
			seen[item.ItemID]++
		}
	}
	if len(seen) != len(items) {
		t.Fatalf("expected %d distinct items in output, got %d", len(items), len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("item %s appeared %d times", id, count)
		}
	}
}

func TestBuildScheduleSortsByPositionThenStartTime(t *testing.T) {
	items := []ItemView{
		viewWith("untimed", dayPtr(1), 1, ""),
		viewWith("morning", dayPtr(1), 1, "08:30"),
		viewWith("first", dayPtr(1), 0, "22:00"),
		viewWith("evening", dayPtr(1), 1, "19:00"),
	}

	groups := BuildSchedule(items, 1)

	got := groupIDs(groups[0])
	want := []string{"first", "morning", "evening", "untimed"}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("unexpected order: got %v, want %v", got, want)
		}
	}
}

func TestBuildScheduleMissingPositionSortsLast(t *testing.T) {
	items := []ItemView{
		viewWith("unset", dayPtr(1), -1, "06:00"),
		viewWith("placed", dayPtr(1), 3, ""),
	}

	groups := BuildSchedule(items, 1)

	got := groupIDs(groups[0])
	if got[0] != "placed" || got[1] != "unset" {
		t.Fatalf("expected negative position to sort last, got %v", got)
	}
}

func TestBuildScheduleIsStableForTiedKeys(t *testing.T) {
	items := []ItemView{
		viewWith("x", dayPtr(1), 4, "10:00"),
		viewWith("y", dayPtr(1), 4, "10:00"),
		viewWith("z", dayPtr(1), 4, "10:00"),
	}

	first := BuildSchedule(items, 1)
	second := BuildSchedule(items, 1)

	firstIDs := groupIDs(first[0])
	secondIDs := groupIDs(second[0])
	want := []string{"x", "y", "z"}
	for index := range want {
		if firstIDs[index] != want[index] {
			t.Fatalf("expected input order preserved on tie, got %v", firstIDs)
		}
		if secondIDs[index] != firstIDs[index] {
			t.Fatalf("expected deterministic output across runs, got %v then %v", firstIDs, secondIDs)
		}
	}
}

func TestBuildScheduleDoesNotMutateInput(t *testing.T) {
	items := []ItemView{
		viewWith("b", dayPtr(1), 1, ""),
		viewWith("a", dayPtr(1), 0, ""),
	}

	BuildSchedule(items, 1)

	if items[0].ItemID != "b" || items[1].ItemID != "a" {
		t.Fatalf("input slice was reordered: %v", []string{items[0].ItemID, items[1].ItemID})
	}
}
