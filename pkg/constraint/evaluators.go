package constraint

import (
	"math/bits"
	"slices"

	"github.com/edongashi/itc-2019-sub000/pkg/model"
)

// evaluator counts the violations of a constraint given the placements of its members, in the
// order of the constraint's class list
type evaluator func(constraint *Constraint, placements []placement) int

// predicate decides whether a pair of members (a before b in the class list) satisfies the constraint
type predicate func(constraint *Constraint, a, b placement) bool

var evaluators = [...]evaluator{
	model.SameStart: pairwise(func(_ *Constraint, a, b placement) bool {
		return a.schedule.Start == b.schedule.Start
	}),
	model.SameTime: pairwise(func(_ *Constraint, a, b placement) bool {
		return a.schedule.Contains(b.schedule) || b.schedule.Contains(a.schedule)
	}),
	model.DifferentTime: pairwise(func(_ *Constraint, a, b placement) bool {
		return a.schedule.Disjoint(b.schedule)
	}),
	model.SameDays: pairwise(func(_ *Constraint, a, b placement) bool {
		union := a.schedule.Days | b.schedule.Days
		return union == a.schedule.Days || union == b.schedule.Days
	}),
	model.DifferentDays: pairwise(func(_ *Constraint, a, b placement) bool {
		return !a.schedule.SharesDays(b.schedule)
	}),
	model.SameWeeks: pairwise(func(_ *Constraint, a, b placement) bool {
		union := a.schedule.Weeks | b.schedule.Weeks
		return union == a.schedule.Weeks || union == b.schedule.Weeks
	}),
	model.DifferentWeeks: pairwise(func(_ *Constraint, a, b placement) bool {
		return !a.schedule.SharesWeeks(b.schedule)
	}),
	model.Overlap: pairwise(func(_ *Constraint, a, b placement) bool {
		return a.schedule.Overlaps(b.schedule, 0)
	}),
	model.NotOverlap: pairwise(func(_ *Constraint, a, b placement) bool {
		return !a.schedule.Overlaps(b.schedule, 0)
	}),
	model.SameRoom: pairwise(func(_ *Constraint, a, b placement) bool {
		return a.room == model.NoRoom || b.room == model.NoRoom || a.room == b.room
	}),
	model.DifferentRoom: pairwise(func(_ *Constraint, a, b placement) bool {
		return a.room == model.NoRoom || b.room == model.NoRoom || a.room != b.room
	}),
	model.SameAttendees: pairwise(func(constraint *Constraint, a, b placement) bool {
		return !a.schedule.Overlaps(b.schedule, constraint.travel.Between(a.room, b.room))
	}),
	model.Precedence: pairwise(func(_ *Constraint, a, b placement) bool {
		firstA, firstB := a.schedule.FirstWeek(), b.schedule.FirstWeek()
		if firstA != firstB {
			return firstA < firstB
		}
		dayA, dayB := a.schedule.FirstDay(), b.schedule.FirstDay()
		if dayA != dayB {
			return dayA < dayB
		}
		return a.schedule.End() <= b.schedule.Start
	}),
	model.WorkDay: pairwise(func(constraint *Constraint, a, b placement) bool {
		if !a.schedule.SharesDays(b.schedule) || !a.schedule.SharesWeeks(b.schedule) {
			return true
		}
		span := max(a.schedule.End(), b.schedule.End()) - min(a.schedule.Start, b.schedule.Start)
		return span <= constraint.Params[0]
	}),
	model.MinGap: pairwise(func(constraint *Constraint, a, b placement) bool {
		if !a.schedule.SharesDays(b.schedule) || !a.schedule.SharesWeeks(b.schedule) {
			return true
		}
		gap := constraint.Params[0]
		return a.schedule.End()+gap <= b.schedule.Start || b.schedule.End()+gap <= a.schedule.Start
	}),
	model.MaxDays:    maxDays,
	model.MaxDayLoad: perDay(maxDayLoad),
	model.MaxBreaks:  perDay(maxBreaks),
	model.MaxBlock:   perDay(maxBlock),
}

// averaged tells whether the soft violation count of a kind is averaged over the weeks of the semester
func averaged(kind model.ConstraintKind) bool {
	return kind == model.MaxDayLoad || kind == model.MaxBreaks || kind == model.MaxBlock
}

// pairwise counts the unordered member pairs that do not satisfy the predicate
func pairwise(satisfied predicate) evaluator {
	return func(constraint *Constraint, placements []placement) int {
		violations := 0
		for i := range placements {
			for j := i + 1; j < len(placements); j++ {
				if !satisfied(constraint, placements[i], placements[j]) {
					violations++
				}
			}
		}
		return violations
	}
}

func maxDays(constraint *Constraint, placements []placement) int {
	var days uint32
	for _, placement := range placements {
		days |= placement.schedule.Days
	}
	return max(bits.OnesCount32(days)-constraint.Params[0], 0)
}

// interval is the part of a member's schedule falling on one day
type interval struct {
	start, end int
}

// dayEvaluator counts the violations of a single (week, day) given the intervals meeting on it
type dayEvaluator func(constraint *Constraint, intervals []interval) int

// perDay runs a day evaluator for every (week, day) of the semester and sums the results
func perDay(count dayEvaluator) evaluator {
	return func(constraint *Constraint, placements []placement) int {
		violations := 0
		for week := range constraint.weeks {
			for day := range constraint.days {
				constraint.scratch = constraint.scratch[:0]
				for _, placement := range placements {
					schedule := placement.schedule
					if schedule.Weeks&(1<<uint(week)) == 0 || schedule.Days&(1<<uint(day)) == 0 {
						continue
					}
					constraint.scratch = append(constraint.scratch, interval{schedule.Start, schedule.End()})
				}
				if len(constraint.scratch) > 0 {
					violations += count(constraint, constraint.scratch)
				}
			}
		}
		return violations
	}
}

func maxDayLoad(constraint *Constraint, intervals []interval) int {
	load := 0
	for _, interval := range intervals {
		load += interval.end - interval.start
	}
	return max(load-constraint.Params[0], 0)
}

// block is a run of intervals separated by gaps of at most S slots
type block struct {
	interval
	size int
}

// mergeBlocks sorts the intervals by start and merges those whose gap to the running block is at most gap
func mergeBlocks(intervals []interval, gap int, visit func(block)) {
	slices.SortFunc(intervals, func(a, b interval) int { return a.start - b.start })

	current := block{interval: intervals[0], size: 1}
	for _, next := range intervals[1:] {
		if next.start-current.end <= gap {
			current.end = max(current.end, next.end)
			current.size++
			continue
		}
		visit(current)
		current = block{interval: next, size: 1}
	}
	visit(current)
}

func maxBreaks(constraint *Constraint, intervals []interval) int {
	blocks := 0
	mergeBlocks(intervals, constraint.Params[1], func(block) { blocks++ })
	return max(blocks-(constraint.Params[0]+1), 0)
}

func maxBlock(constraint *Constraint, intervals []interval) int {
	overflows := 0
	mergeBlocks(intervals, constraint.Params[1], func(block block) {
		if block.size > 1 && block.end-block.start > constraint.Params[0] {
			overflows++
		}
	})
	return overflows
}
