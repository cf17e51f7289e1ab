// Package problem compiles a validated model.Instance into an immutable, cross-indexed Problem:
// dense class arena, travel matrix, per-class constraint lists, per-room candidate classes,
// per-course students, enrollment coordinates, baseline chains, search variables and the
// worst-case bounds used to normalize penalties.
package problem

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/edongashi/itc-2019-sub000/pkg/constraint"
	"github.com/edongashi/itc-2019-sub000/pkg/model"
	"github.com/samber/lo"
)

var ErrCorruptInstance = errors.New("corrupt instance")

type VariableKind uint8

const (
	TimeVariable VariableKind = iota
	RoomVariable
)

func (kind VariableKind) String() string {
	if kind == RoomVariable {
		return "room"
	}
	return "time"
}

// Variable is a class decision with more than one admissible value
type Variable struct {
	Class  int
	Domain int
	Kind   VariableKind
}

// Class is a class of the arena, addressed by its id
type Class struct {
	Id       int
	Parent   int
	Capacity int
	// Admissible rooms and schedules, stable-sorted by ascending penalty
	Rooms     []model.RoomAssignment
	Schedules []model.ScheduleAssignment
	Children  []int

	Course  int
	Config  int
	Subpart int
	Index   int

	// Indices into Problem.Constraints
	CommonConstraints []int
	TimeConstraints   []int
	RoomConstraints   []int
}

func (class *Class) Roomless() bool {
	return len(class.Rooms) == 0
}

func (class *Class) Leaf() bool {
	return len(class.Children) == 0
}

type Subpart struct {
	Id      int
	Classes []int
}

type Config struct {
	Id       int
	Subparts []Subpart
	// Class index per subpart of the default chain
	Baseline []int
}

// ClassAt returns the id of the index-th class of a subpart
func (config *Config) ClassAt(subpart, index int) int {
	return config.Subparts[subpart].Classes[index]
}

type Course struct {
	Id      int
	Configs []Config
}

// EnrollmentConfiguration locates a class inside a student's enrollment state
type EnrollmentConfiguration struct {
	// Position of the course in the student's course list
	CourseIndex int
	Config      int
	Subpart     int
	ClassIndex  int
}

// CourseVariable holds the alternatives of one course: every class per config and subpart, plus
// the leaf classes with a positive capacity
type CourseVariable struct {
	Course  int
	Configs [][][]int
	Loose   []int
}

type Student struct {
	Id      int
	Courses []int
	// Coordinates of every class reachable by the student, keyed by class id
	Enrollments     map[int]EnrollmentConfiguration
	LooseClasses    []int
	CourseVariables []*CourseVariable
}

type Problem struct {
	Name        string
	Days        int
	Weeks       int
	SlotsPerDay int
	Weights     model.Weights

	Rooms       []model.Room
	Classes     []Class
	Courses     []Course
	Students    []Student
	Constraints []*constraint.Constraint
	Travel      model.TravelMatrix

	// Classes that can be placed in each room
	RoomClasses [][]int
	// Students enrolled in each course
	CourseStudents  [][]int
	CourseVariables []CourseVariable
	Variables       []Variable
	Bounds          Bounds
}

// New builds a Problem. cacheSize bounds the memoization cache of every constraint (0 disables it).
func New(instance model.Instance, cacheSize int) (*Problem, error) {
	problem := &Problem{
		Name:        instance.Name,
		Days:        instance.Days,
		Weeks:       instance.Weeks,
		SlotsPerDay: instance.SlotsPerDay,
		Weights:     instance.Weights,
	}

	//** Sort entities by id and check that ids are dense
	problem.Rooms = sortedById(instance.Rooms, func(room model.Room) int { return room.Id })
	courses := sortedById(instance.Courses, func(course model.Course) int { return course.Id })
	students := sortedById(instance.Students, func(student model.Student) int { return student.Id })
	constraints := sortedById(instance.Constraints, func(constraint model.Constraint) int { return constraint.Id })

	if err := errors.Join(
		checkDense("room", lo.Map(problem.Rooms, func(room model.Room, _ int) int { return room.Id })),
		checkDense("course", lo.Map(courses, func(course model.Course, _ int) int { return course.Id })),
		checkDense("student", lo.Map(students, func(student model.Student, _ int) int { return student.Id })),
		checkDense("constraint", lo.Map(constraints, func(constraint model.Constraint, _ int) int { return constraint.Id })),
	); err != nil {
		return nil, err
	}

	problem.Travel = model.NewTravelMatrix(problem.Rooms)

	//** Build class arena
	if err := problem.buildClasses(courses); err != nil {
		return nil, err
	}

	//** Build baseline chains
	for c := range problem.Courses {
		for k := range problem.Courses[c].Configs {
			if err := problem.buildBaseline(c, k); err != nil {
				return nil, err
			}
		}
	}

	//** Build constraints
	definitions := lo.Map(problem.Classes, func(class Class, _ int) model.Class {
		return model.Class{Id: class.Id, Parent: class.Parent, Capacity: class.Capacity, Rooms: class.Rooms, Schedules: class.Schedules}
	})
	for index, definition := range constraints {
		built, err := constraint.New(definition, definitions, problem.Travel, problem.Weeks, problem.Days, cacheSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptInstance, err)
		}
		problem.Constraints = append(problem.Constraints, built)

		for _, id := range lo.Uniq(built.Classes) {
			class := &problem.Classes[id]
			switch built.Category() {
			case model.CommonCategory:
				class.CommonConstraints = append(class.CommonConstraints, index)
			case model.TimeCategory:
				class.TimeConstraints = append(class.TimeConstraints, index)
			case model.RoomCategory:
				class.RoomConstraints = append(class.RoomConstraints, index)
			}
		}
	}

	//** Build room lists
	problem.RoomClasses = make([][]int, len(problem.Rooms))
	for _, class := range problem.Classes {
		for _, option := range class.Rooms {
			classes := problem.RoomClasses[option.Room]
			if len(classes) > 0 && classes[len(classes)-1] == class.Id {
				continue
			}
			problem.RoomClasses[option.Room] = append(classes, class.Id)
		}
	}

	//** Build students
	problem.buildCourseVariables()
	if err := problem.buildStudents(students); err != nil {
		return nil, err
	}

	//** Build variables
	for _, class := range problem.Classes {
		if len(class.Schedules) > 1 {
			problem.Variables = append(problem.Variables, Variable{Class: class.Id, Domain: len(class.Schedules), Kind: TimeVariable})
		}
		if len(class.Rooms) > 1 {
			problem.Variables = append(problem.Variables, Variable{Class: class.Id, Domain: len(class.Rooms), Kind: RoomVariable})
		}
	}

	problem.Bounds = problem.computeBounds()
	return problem, nil
}

func sortedById[T any](values []T, id func(T) int) []T {
	sorted := slices.Clone(values)
	slices.SortStableFunc(sorted, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return sorted
}

// Checks whether sorted ids are exactly 0..n-1
func checkDense(name string, ids []int) error {
	for i, id := range ids {
		if id != i {
			return fmt.Errorf("%w: %v ids must be dense and start at 0, found %v at position %v", ErrCorruptInstance, name, id, i)
		}
	}
	return nil
}

func (problem *Problem) buildClasses(courses []model.Course) error {
	var arena []Class
	for c, course := range courses {
		if len(course.Configurations) == 0 {
			return fmt.Errorf("%w: course %v has no configuration", ErrCorruptInstance, course.Id)
		}
		built := Course{Id: course.Id}
		for k, configuration := range course.Configurations {
			config := Config{Id: configuration.Id}
			for s, subpart := range configuration.Subparts {
				if !lo.SomeBy(subpart.Classes, func(class model.Class) bool { return class.Capacity > 0 }) {
					return fmt.Errorf("%w: subpart %v of course %v has no class with a positive capacity", ErrCorruptInstance, subpart.Id, course.Id)
				}

				classes := sortedById(subpart.Classes, func(class model.Class) int { return class.Id })
				config.Subparts = append(config.Subparts, Subpart{
					Id:      subpart.Id,
					Classes: lo.Map(classes, func(class model.Class, _ int) int { return class.Id }),
				})

				for index, class := range classes {
					rooms := slices.Clone(class.Rooms)
					slices.SortStableFunc(rooms, func(a, b model.RoomAssignment) int { return cmp.Compare(a.Penalty, b.Penalty) })
					schedules := slices.Clone(class.Schedules)
					slices.SortStableFunc(schedules, func(a, b model.ScheduleAssignment) int { return cmp.Compare(a.Penalty, b.Penalty) })
					if len(schedules) == 0 {
						return fmt.Errorf("%w: class %v has no admissible time", ErrCorruptInstance, class.Id)
					}

					arena = append(arena, Class{
						Id:        class.Id,
						Parent:    class.Parent,
						Capacity:  class.Capacity,
						Rooms:     rooms,
						Schedules: schedules,
						Course:    c,
						Config:    k,
						Subpart:   s,
						Index:     index,
					})
				}
			}
			built.Configs = append(built.Configs, config)
		}
		problem.Courses = append(problem.Courses, built)
	}

	slices.SortFunc(arena, func(a, b Class) int { return cmp.Compare(a.Id, b.Id) })
	if err := checkDense("class", lo.Map(arena, func(class Class, _ int) int { return class.Id })); err != nil {
		return err
	}
	problem.Classes = arena

	//** Link parents and children
	for i := range problem.Classes {
		class := &problem.Classes[i]
		for _, option := range class.Rooms {
			if option.Room < 0 || option.Room >= len(problem.Rooms) {
				return fmt.Errorf("%w: class %v refers to unknown room %v", ErrCorruptInstance, class.Id, option.Room)
			}
		}
		if class.Parent == model.NoParent {
			continue
		}
		if class.Parent < 0 || class.Parent >= len(problem.Classes) {
			return fmt.Errorf("%w: class %v refers to unknown parent %v", ErrCorruptInstance, class.Id, class.Parent)
		}
		parent := &problem.Classes[class.Parent]
		if parent.Course != class.Course || parent.Config != class.Config || parent.Subpart >= class.Subpart {
			return fmt.Errorf("%w: parent %v of class %v is not in an earlier subpart of the same configuration", ErrCorruptInstance, parent.Id, class.Id)
		}
		parent.Children = append(parent.Children, class.Id)
	}
	return nil
}

func (problem *Problem) buildCourseVariables() {
	problem.CourseVariables = make([]CourseVariable, len(problem.Courses))
	for c, course := range problem.Courses {
		variable := CourseVariable{Course: c}
		for _, config := range course.Configs {
			variable.Configs = append(variable.Configs, lo.Map(config.Subparts, func(subpart Subpart, _ int) []int {
				return slices.Clone(subpart.Classes)
			}))
			for _, subpart := range config.Subparts {
				variable.Loose = append(variable.Loose, lo.Filter(subpart.Classes, func(id int, _ int) bool {
					return problem.Classes[id].Leaf() && problem.Classes[id].Capacity > 0
				})...)
			}
		}
		problem.CourseVariables[c] = variable
	}
}

func (problem *Problem) buildStudents(students []model.Student) error {
	problem.CourseStudents = make([][]int, len(problem.Courses))
	for _, student := range students {
		built := Student{
			Id:          student.Id,
			Courses:     lo.Uniq(student.Courses),
			Enrollments: make(map[int]EnrollmentConfiguration),
		}

		for courseIndex, course := range built.Courses {
			if course < 0 || course >= len(problem.Courses) {
				return fmt.Errorf("%w: student %v is enrolled in unknown course %v", ErrCorruptInstance, student.Id, course)
			}
			problem.CourseStudents[course] = append(problem.CourseStudents[course], student.Id)

			variable := &problem.CourseVariables[course]
			built.CourseVariables = append(built.CourseVariables, variable)
			built.LooseClasses = append(built.LooseClasses, variable.Loose...)

			for k, config := range problem.Courses[course].Configs {
				for s, subpart := range config.Subparts {
					for index, class := range subpart.Classes {
						built.Enrollments[class] = EnrollmentConfiguration{CourseIndex: courseIndex, Config: k, Subpart: s, ClassIndex: index}
					}
				}
			}
		}

		problem.Students = append(problem.Students, built)
	}
	return nil
}
