// Package service is the planning layer shared by the HTTP API, the MCP
// server and the command line.
//
// A session pairs a board with its movement rules. The service resolves
// default endpoints from the board's Start and End cells, runs the
// shortest-path planner and the tour searcher against the session's rules,
// and renders results for display. Searches on one session are serialised;
// separate sessions run concurrently.
//
// Usage:
//
//	sessions := session.NewManager()
//	boards := config.NewManager("boards")
//	svc := service.NewPlannerService(sessions, boards, service.WithPublisher(hub))
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{Board: "8x8"})
//	if err != nil {
//		klog.Fatal(err)
//	}
//	plan, err := svc.Plan(ctx, info.ID, service.PlanRequest{})
//
// Events describing finished searches, and throttled progress of running
// tours, are sent to the configured Publisher.
package service
