// Package webui serves the command console's admin HTTP API and frontend.
//
// Routes:
//
//	GET  /health                 liveness, no auth
//	GET  /api/verify             secret check
//	GET  /api/commands           command snapshot
//	POST /api/commands/toggle    flip one handler
//	GET  /*                      embedded frontend
//
// Every /api route sits behind auth.Middleware.
package webui
