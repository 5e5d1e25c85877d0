package rpccodec

import "time"

// Message shapes below mirror the wire contract assigned to the
// two RPC surfaces. Each has a `.proto`-shaped doc comment so the contract
// reads the same as the original tonic service definitions even though
// encoding goes through Codec (JSON) rather than generated protobuf types.

// CreateUserRequest is the request for GameService.CreateUser.
//
//	message CreateUserRequest { int64 external_id = 1; string username = 2; }
type CreateUserRequest struct {
	ExternalID int64  `json:"external_id"`
	Username   string `json:"username"`
}

// CreateUserResponse is the response for GameService.CreateUser.
//
//	message CreateUserResponse { string user_id = 1; string username = 2; int64 total_clicks = 3; bool success = 4; string message = 5; }
type CreateUserResponse struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	TotalClicks int64  `json:"total_clicks"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
}

// GetUserRequest is the request for GameService.GetUser.
//
//	message GetUserRequest { int64 external_id = 1; }
type GetUserRequest struct {
	ExternalID int64 `json:"external_id"`
}

// GetUserResponse is the response for GameService.GetUser.
//
//	message GetUserResponse { string user_id = 1; int64 external_id = 2; string username = 3; int64 total_clicks = 4; bool exists = 5; }
type GetUserResponse struct {
	UserID      string `json:"user_id"`
	ExternalID  int64  `json:"external_id"`
	Username    string `json:"username"`
	TotalClicks int64  `json:"total_clicks"`
	Exists      bool   `json:"exists"`
}

// UpdateUsernameRequest is the request for GameService.UpdateUsername.
//
//	message UpdateUsernameRequest { string user_id = 1; string new_username = 2; }
type UpdateUsernameRequest struct {
	UserID      string `json:"user_id"`
	NewUsername string `json:"new_username"`
}

// UpdateUsernameResponse is the response for GameService.UpdateUsername.
//
//	message UpdateUsernameResponse { bool success = 1; string message = 2; string username = 3; }
type UpdateUsernameResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

// ProcessClickRequest is the request for GameService.ProcessClick.
//
//	message ProcessClickRequest { string user_id = 1; int64 external_id = 2; string session_id = 3; int64 timestamp = 4; int64 click_count = 5; }
type ProcessClickRequest struct {
	UserID     string `json:"user_id"`
	ExternalID int64  `json:"external_id"`
	SessionID  string `json:"session_id"`
	Timestamp  int64  `json:"timestamp"`
	ClickCount int64  `json:"click_count"`
}

// ProcessClickResponse is the response for GameService.ProcessClick.
//
//	message ProcessClickResponse { int64 new_total = 1; int32 current_rank = 2; bool rate_limited = 3; string message = 4; bool success = 5; int64 session_clicks = 6; }
type ProcessClickResponse struct {
	NewTotal      int64  `json:"new_total"`
	CurrentRank   int32  `json:"current_rank"`
	RateLimited   bool   `json:"rate_limited"`
	Message       string `json:"message"`
	Success       bool   `json:"success"`
	SessionClicks int64  `json:"session_clicks"`
}

// StartSessionRequest is the request for GameService.StartSession.
//
//	message StartSessionRequest { string user_id = 1; int64 chat_id = 2; int32 message_id = 3; }
type StartSessionRequest struct {
	UserID    string `json:"user_id"`
	ChatID    int64  `json:"chat_id"`
	MessageID *int32 `json:"message_id,omitempty"`
}

// StartSessionResponse is the response for GameService.StartSession.
//
//	message StartSessionResponse { string session_id = 1; bool success = 2; int64 total_clicks = 3; int64 started_at = 4; }
type StartSessionResponse struct {
	SessionID   string `json:"session_id"`
	Success     bool   `json:"success"`
	TotalClicks int64  `json:"total_clicks"`
	StartedAt   int64  `json:"started_at"`
}

// HeartbeatRequest is the request for GameService.Heartbeat.
//
//	message HeartbeatRequest { string session_id = 1; }
type HeartbeatRequest struct {
	SessionID string `json:"session_id"`
}

// HeartbeatResponse is the response for GameService.Heartbeat.
//
//	message HeartbeatResponse { bool active = 1; }
type HeartbeatResponse struct {
	Active bool `json:"active"`
}

// EndSessionRequest is the request for GameService.EndSession.
//
//	message EndSessionRequest { string session_id = 1; }
type EndSessionRequest struct {
	SessionID string `json:"session_id"`
}

// EndSessionResponse is the response for GameService.EndSession.
//
//	message EndSessionResponse { bool success = 1; }
type EndSessionResponse struct {
	Success bool `json:"success"`
}

// GetSessionStatsRequest is the request for GameService.GetSessionStats.
//
//	message GetSessionStatsRequest { string session_id = 1; }
type GetSessionStatsRequest struct {
	SessionID string `json:"session_id"`
}

// GetSessionStatsResponse is the response for GameService.GetSessionStats,
// carrying the full per-session stats field set.
//
//	message GetSessionStatsResponse { int64 total_clicks = 1; double duration_secs = 2; double clicks_per_minute = 3; bool is_active = 4; int64 ended_at = 5; }
type GetSessionStatsResponse struct {
	TotalClicks     int64    `json:"total_clicks"`
	DurationSecs    float64  `json:"duration_secs"`
	ClicksPerMinute float64  `json:"clicks_per_minute"`
	IsActive        bool     `json:"is_active"`
	EndedAt         *int64   `json:"ended_at,omitempty"`
}

// GetOrCreateSessionRequest is the request for GameService.GetOrCreateSession.
//
//	message GetOrCreateSessionRequest { string user_id = 1; int64 chat_id = 2; int32 message_id = 3; }
type GetOrCreateSessionRequest struct {
	UserID    string `json:"user_id"`
	ChatID    int64  `json:"chat_id"`
	MessageID *int32 `json:"message_id,omitempty"`
}

// GetOrCreateSessionResponse is the response for GameService.GetOrCreateSession.
//
//	message GetOrCreateSessionResponse { string session_id = 1; bool success = 2; bool is_reconnection = 3; int64 total_clicks = 4; int64 started_at = 5; double duration_secs = 6; }
type GetOrCreateSessionResponse struct {
	SessionID      string  `json:"session_id"`
	Success        bool    `json:"success"`
	IsReconnection bool    `json:"is_reconnection"`
	TotalClicks    int64   `json:"total_clicks"`
	StartedAt      int64   `json:"started_at"`
	DurationSecs   float64 `json:"duration_secs"`
}

// LeaderboardEntry is one row of a GetLeaderboardResponse.
//
//	message LeaderboardEntry { int32 rank = 1; string user_id = 2; string username = 3; int64 total_clicks = 4; }
type LeaderboardEntry struct {
	Rank        int32  `json:"rank"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	TotalClicks int64  `json:"total_clicks"`
}

// GetLeaderboardRequest is the request for LeaderboardService.GetLeaderboard.
//
//	message GetLeaderboardRequest { int32 limit = 1; int32 offset = 2; }
type GetLeaderboardRequest struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

// GetLeaderboardResponse is the response for LeaderboardService.GetLeaderboard.
//
//	message GetLeaderboardResponse { repeated LeaderboardEntry entries = 1; int64 total_count = 2; }
type GetLeaderboardResponse struct {
	Entries    []LeaderboardEntry `json:"entries"`
	TotalCount int64              `json:"total_count"`
}

// GetUserRankRequest is the request for LeaderboardService.GetUserRank.
//
//	message GetUserRankRequest { string user_id = 1; }
type GetUserRankRequest struct {
	UserID string `json:"user_id"`
}

// GetUserRankResponse is the response for LeaderboardService.GetUserRank.
//
//	message GetUserRankResponse { int32 rank = 1; int64 total_clicks = 2; bool found = 3; }
type GetUserRankResponse struct {
	Rank        int32 `json:"rank"`
	TotalClicks int64 `json:"total_clicks"`
	Found       bool  `json:"found"`
}

// GetGlobalStatsRequest is the request for LeaderboardService.GetGlobalStats.
//
//	message GetGlobalStatsRequest {}
type GetGlobalStatsRequest struct{}

// GetGlobalStatsResponse is the response for LeaderboardService.GetGlobalStats.
//
//	message GetGlobalStatsResponse { int64 total_clicks = 1; int64 total_users = 2; int64 active_sessions = 3; }
type GetGlobalStatsResponse struct {
	TotalClicks    int64 `json:"total_clicks"`
	TotalUsers     int64 `json:"total_users"`
	ActiveSessions int64 `json:"active_sessions"`
}

// UpdateUserScoreRequest is the request for LeaderboardService.UpdateUserScore.
//
//	message UpdateUserScoreRequest { string user_id = 1; string username = 2; int64 score = 3; }
type UpdateUserScoreRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// UpdateUserScoreResponse is the response for LeaderboardService.UpdateUserScore.
//
//	message UpdateUserScoreResponse { bool success = 1; int32 new_rank = 2; }
type UpdateUserScoreResponse struct {
	Success bool  `json:"success"`
	NewRank int32 `json:"new_rank"`
}

// unixMillis converts t to the millisecond wire timestamp. The servers call
// time.Time.UnixMilli directly; nothing in this module calls this helper.
func unixMillis(t time.Time) int64 {
	return t.UnixMilli()
}
