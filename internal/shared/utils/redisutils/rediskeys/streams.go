package rediskeys

// Stream names published by the matchmaking core.
const (
	MatchFoundStream = "matchmaking:match_found"
)
