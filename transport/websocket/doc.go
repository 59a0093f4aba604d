// Package websocket pushes session events to browser and tool clients.
//
// A Hub owns every connection. Clients subscribe to one session by
// connecting to /ws/{sessionId}; each receives a "connected" event and then
// every event the planner service publishes for that session ("plan",
// "tour_progress", "tour", "compare", ...), one JSON document per websocket
// message. Incoming client messages are ignored.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	svc := service.NewPlannerService(sessions, boards, service.WithPublisher(hub))
package websocket
