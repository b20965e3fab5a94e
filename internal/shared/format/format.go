package format

// Format identifies the shape of a match: how many players it needs and
// how they split into teams.
type Format string

const (
	OneVsOne      Format = "OneVsOne"
	TwoVsTwo      Format = "TwoVsTwo"
	FourPlayerFFA Format = "FourPlayerFFA"
)

func All() []Format {
	return []Format{OneVsOne, TwoVsTwo, FourPlayerFFA}
}

func (f Format) Valid() bool {
	switch f {
	case OneVsOne, TwoVsTwo, FourPlayerFFA:
		return true
	}
	return false
}

// PartySize is the exact number of players a match of this format holds.
func (f Format) PartySize() int {
	switch f {
	case OneVsOne:
		return 2
	case TwoVsTwo, FourPlayerFFA:
		return 4
	}
	return 0
}

// TeamNumbers returns the team id for each seat, parallel to the player
// list of a committed match. FFA players each sit on their own team.
func (f Format) TeamNumbers() []int {
	switch f {
	case OneVsOne:
		return []int{1, 2}
	case TwoVsTwo:
		return []int{1, 1, 2, 2}
	case FourPlayerFFA:
		return []int{1, 2, 3, 4}
	}
	return nil
}

func (f Format) String() string {
	return string(f)
}
