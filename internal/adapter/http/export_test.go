package http

import "time"

// SetRefreshWait shortens how long POST /refresh waits for its cycle.
func SetRefreshWait(s *Server, d time.Duration) { s.refreshWait = d }
