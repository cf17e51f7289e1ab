package model

// NoRoom marks a class that does not need a room, as well as the room index of such a class
const NoRoom = -1

// NoParent marks a class without a parent class
const NoParent = -1

type TravelTime struct {
	Room  int
	Value int
}

type Room struct {
	Id          int
	Capacity    int
	Unavailable []Schedule
	TravelTimes []TravelTime
}

// RoomAssignment is an admissible room of a class together with the penalty of choosing it
type RoomAssignment struct {
	Room    int
	Penalty int
}

// ScheduleAssignment is an admissible time of a class together with the penalty of choosing it
type ScheduleAssignment struct {
	Schedule Schedule
	Penalty  int
}

type Class struct {
	Id        int
	Parent    int
	Capacity  int
	Rooms     []RoomAssignment
	Schedules []ScheduleAssignment
}

func (class Class) Roomless() bool {
	return len(class.Rooms) == 0
}

// Subpart is a set of mutually exclusive classes: a student attends exactly one class of each subpart of its configuration
type Subpart struct {
	Id      int
	Classes []Class
}

type Configuration struct {
	Id       int
	Subparts []Subpart
}

type Course struct {
	Id             int
	Configurations []Configuration
}

type Student struct {
	Id      int
	Courses []int
}

type Constraint struct {
	Id       int
	Kind     ConstraintKind
	Params   []int
	Required bool
	Penalty  int
	Classes  []int
}

// Weights are the optimization weights applied to each soft penalty category
type Weights struct {
	Time         int
	Room         int
	Distribution int
	Student      int
}

// Instance is the fully populated entity graph of a timetabling problem
type Instance struct {
	Name        string
	Days        int
	Weeks       int
	SlotsPerDay int
	Weights     Weights
	Rooms       []Room
	Courses     []Course
	Students    []Student
	Constraints []Constraint
}
