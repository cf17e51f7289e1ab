package model

// TravelMatrix holds the symmetric travel times (in slots) between every pair of rooms
type TravelMatrix struct {
	rooms  int
	values []int
}

// NewTravelMatrix builds the matrix from each room's travel list. When two rooms disagree on
// the travel time between them the larger value is kept, so the result is always symmetric.
func NewTravelMatrix(rooms []Room) TravelMatrix {
	matrix := TravelMatrix{
		rooms:  len(rooms),
		values: make([]int, len(rooms)*len(rooms)),
	}

	for _, room := range rooms {
		for _, travel := range room.TravelTimes {
			if travel.Room < 0 || travel.Room >= len(rooms) || travel.Room == room.Id {
				continue
			}
			forward, backward := room.Id*matrix.rooms+travel.Room, travel.Room*matrix.rooms+room.Id
			value := max(travel.Value, matrix.values[forward])
			matrix.values[forward] = value
			matrix.values[backward] = value
		}
	}

	return matrix
}

// Between returns the travel time between two rooms; roomless classes (NoRoom) never need to travel
func (matrix TravelMatrix) Between(room1, room2 int) int {
	if room1 < 0 || room2 < 0 {
		return 0
	}
	return matrix.values[room1*matrix.rooms+room2]
}

func (matrix TravelMatrix) Rooms() int {
	return matrix.rooms
}
