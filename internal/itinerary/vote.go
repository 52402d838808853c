package itinerary

// VoteOutcome is the result of applying one click of a vote control.
type VoteOutcome struct {
	UserVote UserVote
	Delta    int
}

// directionVote maps a clicked direction onto the vote it records and the
// tally weight that vote carries.
func directionVote(clicked Direction) (UserVote, int) {
	if clicked == DirectionDown {
		return UserVoteDown, -1
	}
	return UserVoteUp, +1
}

// voteWeight is the tally contribution of a recorded vote.
func voteWeight(vote UserVote) int {
	switch vote {
	case UserVoteUp:
		return +1
	case UserVoteDown:
		return -1
	default:
		return 0
	}
}

// Transition applies one vote click against the viewer's current vote and
// returns the resulting vote plus the tally delta. Clicking the already
// active direction toggles the vote off; clicking the opposite direction
// flips it, moving the tally by two. The delta is derived from the weights of
// the old and new vote in one place so toggle-off and flip can never drift
// apart at call sites.
func Transition(current UserVote, clicked Direction) VoteOutcome {
	next, _ := directionVote(clicked)
	if current == next {
		next = UserVoteNone
	}
	return VoteOutcome{
		UserVote: next,
		Delta:    voteWeight(next) - voteWeight(current),
	}
}
