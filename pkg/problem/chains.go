package problem

import (
	"fmt"
	"slices"

	"github.com/edongashi/itc-2019-sub000/pkg/model"
)

// buildBaseline finds the first chain of a configuration by depth-first search, trying the classes
// of every subpart in id order and skipping classes without capacity
func (problem *Problem) buildBaseline(course, configIndex int) error {
	config := &problem.Courses[course].Configs[configIndex]
	chain := make([]int, len(config.Subparts))

	var search func(subpart int) bool
	search = func(subpart int) bool {
		if subpart == len(config.Subparts) {
			return true
		}
		for index, id := range config.Subparts[subpart].Classes {
			class := &problem.Classes[id]
			if class.Capacity == 0 || !problem.parentChosen(config, chain, class) {
				continue
			}
			chain[subpart] = index
			if search(subpart + 1) {
				return true
			}
		}
		return false
	}

	if !search(0) {
		return fmt.Errorf("%w: configuration %v of course %v has no valid chain", ErrCorruptInstance, config.Id, problem.Courses[course].Id)
	}
	config.Baseline = chain
	return nil
}

// Checks whether the parent of the class (if any) is the class chosen in the parent's subpart
func (problem *Problem) parentChosen(config *Config, chain []int, class *Class) bool {
	if class.Parent == model.NoParent {
		return true
	}
	parent := &problem.Classes[class.Parent]
	return config.ClassAt(parent.Subpart, chain[parent.Subpart]) == parent.Id
}

// ValidChain checks whether the chain picks one existing class per subpart of the configuration
// with every parent linkage respected
func (problem *Problem) ValidChain(course, configIndex int, chain []int) bool {
	config := &problem.Courses[course].Configs[configIndex]
	if len(chain) != len(config.Subparts) {
		return false
	}
	for subpart, index := range chain {
		if index < 0 || index >= len(config.Subparts[subpart].Classes) {
			return false
		}
		if !problem.parentChosen(config, chain, &problem.Classes[config.ClassAt(subpart, index)]) {
			return false
		}
	}
	return true
}

// ChainThrough returns a chain of the target's configuration that contains the target class. The
// current chain is kept as far as possible when it belongs to that configuration, otherwise the
// baseline is used as a starting point. Ancestors of the target are pinned, then every other
// subpart whose parent is no longer chosen is moved to its first admissible class.
func (problem *Problem) ChainThrough(course, configIndex int, current []int, target int) ([]int, error) {
	class := &problem.Classes[target]
	if class.Course != course || class.Config != configIndex {
		return nil, fmt.Errorf("class %v does not belong to configuration %v of course %v", target, configIndex, course)
	}

	config := &problem.Courses[course].Configs[configIndex]
	var chain []int
	if len(current) == len(config.Subparts) {
		chain = slices.Clone(current)
	} else {
		chain = slices.Clone(config.Baseline)
	}

	//** Pin target and ancestors
	for id := target; id != model.NoParent; id = problem.Classes[id].Parent {
		ancestor := &problem.Classes[id]
		chain[ancestor.Subpart] = ancestor.Index
	}

	//** Repair the remaining subparts
	for subpart := range chain {
		if problem.parentChosen(config, chain, &problem.Classes[config.ClassAt(subpart, chain[subpart])]) {
			continue
		}

		fallback := -1
		for index, id := range config.Subparts[subpart].Classes {
			candidate := &problem.Classes[id]
			if !problem.parentChosen(config, chain, candidate) {
				continue
			}
			if candidate.Capacity > 0 {
				fallback = index
				break
			}
			if fallback < 0 {
				fallback = index
			}
		}
		if fallback < 0 {
			return nil, fmt.Errorf("%w: subpart %v of course %v has no class under the chosen parent", ErrCorruptInstance, config.Subparts[subpart].Id, problem.Courses[course].Id)
		}
		chain[subpart] = fallback
	}

	return chain, nil
}
