package voting

import (
	"fmt"
	"strings"
)

type (
	Direction int

	// Policy decides how low a counter may go.
	Policy struct {
		Floored bool
		Floor   int
	}

	// Tally is the vote summary returned after a vote.
	Tally struct {
		ID        string `json:"id"`
		VoteCount int    `json:"voteCount"`
	}
)

const (
	Up   Direction = 1
	Down Direction = -1
)

var (
	// Posts never go below zero.
	PostPolicy = Policy{Floored: true, Floor: 0}
	// Comments may go negative.
	CommentPolicy = Policy{}
)

// Apply returns the counter after one vote in direction dir.
func Apply(count int, dir Direction, p Policy) int {
	next := count + int(dir)
	if p.Floored && next < p.Floor {
		return p.Floor
	}
	return next
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "up", "upvote":
		return Up, nil
	case "down", "downvote":
		return Down, nil
	}
	return 0, fmt.Errorf("voting: unknown direction %q", s)
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}
